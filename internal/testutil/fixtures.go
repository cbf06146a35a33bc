package testutil

import (
	"time"

	domainfixtures "github.com/preston-bernstein/epl-fixtures-service/internal/domain/fixtures"
)

// SampleFixture returns a scheduled fixture in gameweek 1 kicking off at kickoff.
func SampleFixture(id int, kickoff time.Time) domainfixtures.Fixture {
	gw := 1
	return domainfixtures.Fixture{
		ID:          id,
		Gameweek:    &gw,
		HomeTeamID:  1,
		AwayTeamID:  2,
		KickoffTime: &kickoff,
	}
}

// SampleTeams returns the two teams referenced by SampleFixture.
func SampleTeams() []domainfixtures.Team {
	return []domainfixtures.Team{
		{ID: 1, Name: "Arsenal", ShortName: "ARS"},
		{ID: 2, Name: "Aston Villa", ShortName: "AVL"},
	}
}

// LiveFixture returns a fixture that kicked off at kickoff and is still in play.
func LiveFixture(id int, kickoff time.Time, minutes int) domainfixtures.Fixture {
	f := SampleFixture(id, kickoff)
	f.Started = true
	f.Minutes = minutes
	zero := 0
	f.HomeScore = &zero
	f.AwayScore = &zero
	return f
}
