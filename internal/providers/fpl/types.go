package fpl

// Wire shapes of the FPL API. Nullable upstream fields are pointers so the
// mapper can apply defaults.

type fixtureResponse struct {
	ID                   int     `json:"id"`
	Code                 int     `json:"code"`
	Event                *int    `json:"event"`
	TeamH                int     `json:"team_h"`
	TeamA                int     `json:"team_a"`
	TeamHScore           *int    `json:"team_h_score"`
	TeamAScore           *int    `json:"team_a_score"`
	KickoffTime          *string `json:"kickoff_time"`
	Started              *bool   `json:"started"`
	Finished             bool    `json:"finished"`
	FinishedProvisional  bool    `json:"finished_provisional"`
	Minutes              int     `json:"minutes"`
	ProvisionalStartTime bool    `json:"provisional_start_time"`
	TeamHDifficulty      int     `json:"team_h_difficulty"`
	TeamADifficulty      int     `json:"team_a_difficulty"`
}

type bootstrapResponse struct {
	Events []eventResponse `json:"events"`
	Teams  []teamResponse  `json:"teams"`
}

type eventResponse struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	DeadlineTime *string `json:"deadline_time"`
	Finished     bool    `json:"finished"`
	IsPrevious   bool    `json:"is_previous"`
	IsCurrent    bool    `json:"is_current"`
	IsNext       bool    `json:"is_next"`
}

type teamResponse struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Code      int    `json:"code"`
	Strength  int    `json:"strength"`
}
