package fixtures

import "time"

// Status is the derived lifecycle state of a fixture. It is never persisted.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusFinished  Status = "finished"
	StatusPostponed Status = "postponed"
)

// Period describes which half a live match is in.
type Period string

const (
	PeriodFirstHalf  Period = "first-half"
	PeriodSecondHalf Period = "second-half"
)

// MatchStatus is the status view of a fixture at an evaluation instant.
type MatchStatus struct {
	Status  Status `json:"status"`
	Minutes int    `json:"minutes,omitempty"`
	Period  Period `json:"period,omitempty"`
}

// Fixture is a single scheduled or played match. Values are immutable per fetch.
type Fixture struct {
	ID                  int        `json:"id"`
	Code                int        `json:"code"`
	Gameweek            *int       `json:"gameweek"`
	HomeTeamID          int        `json:"homeTeamId"`
	AwayTeamID          int        `json:"awayTeamId"`
	HomeScore           *int       `json:"homeScore"`
	AwayScore           *int       `json:"awayScore"`
	KickoffTime         *time.Time `json:"kickoffTime"`
	Started             bool       `json:"started"`
	Finished            bool       `json:"finished"`
	FinishedProvisional bool       `json:"finishedProvisional"`
	Minutes             int        `json:"minutes"`
	ProvisionalKickoff  bool       `json:"provisionalKickoff"`
	HomeDifficulty      int        `json:"homeDifficulty,omitempty"`
	AwayDifficulty      int        `json:"awayDifficulty,omitempty"`
}

// HasKickoff reports whether the fixture has a kickoff instant.
func (f Fixture) HasKickoff() bool {
	return f.KickoffTime != nil && !f.KickoffTime.IsZero()
}

// Kickoff returns the kickoff instant in UTC, or the zero time when unscheduled.
func (f Fixture) Kickoff() time.Time {
	if !f.HasKickoff() {
		return time.Time{}
	}
	return f.KickoffTime.UTC()
}

// Team is the normalized team shape.
type Team struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	Code      int    `json:"code"`
	Strength  int    `json:"strength"`
}

// Gameweek is an FPL "event": a round of fixtures with a deadline.
type Gameweek struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	DeadlineTime *time.Time `json:"deadlineTime"`
	Finished     bool       `json:"finished"`
	IsPrevious   bool       `json:"isPrevious"`
	IsCurrent    bool       `json:"isCurrent"`
	IsNext       bool       `json:"isNext"`
}

// Bootstrap carries the slow-moving metadata needed to render fixtures.
type Bootstrap struct {
	Gameweeks []Gameweek `json:"gameweeks"`
	Teams     []Team     `json:"teams"`
}

// FixtureWithTeams is a fixture joined with display names for both sides.
type FixtureWithTeams struct {
	Fixture
	HomeTeamName      string `json:"homeTeamName"`
	HomeTeamShortName string `json:"homeTeamShortName"`
	AwayTeamName      string `json:"awayTeamName"`
	AwayTeamShortName string `json:"awayTeamShortName"`
}
