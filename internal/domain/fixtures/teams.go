package fixtures

const (
	unknownTeamName      = "Unknown"
	unknownTeamShortName = "UNK"
)

// JoinTeams attaches team names to each fixture. Teams missing from the lookup
// get placeholder names instead of failing the join.
func JoinTeams(items []Fixture, teams []Team) []FixtureWithTeams {
	byID := make(map[int]Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}

	out := make([]FixtureWithTeams, 0, len(items))
	for _, f := range items {
		home, away := lookupTeam(byID, f.HomeTeamID), lookupTeam(byID, f.AwayTeamID)
		out = append(out, FixtureWithTeams{
			Fixture:           f,
			HomeTeamName:      home.Name,
			HomeTeamShortName: home.ShortName,
			AwayTeamName:      away.Name,
			AwayTeamShortName: away.ShortName,
		})
	}
	return out
}

// Unwrap returns the plain fixtures from a joined slice.
func Unwrap(items []FixtureWithTeams) []Fixture {
	out := make([]Fixture, 0, len(items))
	for _, item := range items {
		out = append(out, item.Fixture)
	}
	return out
}

func lookupTeam(byID map[int]Team, id int) Team {
	t, ok := byID[id]
	if !ok {
		return Team{ID: id, Name: unknownTeamName, ShortName: unknownTeamShortName}
	}
	if t.Name == "" {
		t.Name = unknownTeamName
	}
	if t.ShortName == "" {
		t.ShortName = unknownTeamShortName
	}
	return t
}

// Involves reports whether the team plays in the fixture, home or away.
func (f Fixture) Involves(teamID int) bool {
	return f.HomeTeamID == teamID || f.AwayTeamID == teamID
}

// TeamPlaying reports whether the team appears in any of the fixtures.
func TeamPlaying(teamID int, items []Fixture) bool {
	for _, f := range items {
		if f.Involves(teamID) {
			return true
		}
	}
	return false
}
