// Package view derives the display model of the fixture list: filtered,
// grouped by kickoff date, ordered, with the next fixture highlighted.
// Every function is pure and leaves its input untouched.
package view

import (
	"sort"
	"time"

	"github.com/preston-bernstein/epl-fixtures-service/internal/domain/fixtures"
	"github.com/preston-bernstein/epl-fixtures-service/internal/timeutil"
)

// TBCKey groups fixtures that have no kickoff yet. It sorts after every date.
const TBCKey = "TBC"

// Settings are the user preferences that shape the view.
type Settings struct {
	HidePreviousFixtures bool   `json:"hidePreviousFixtures"`
	SelectedTimezone     string `json:"selectedTimezone"`
}

// Grouping maps a YYYY-MM-DD date key to that day's fixtures. Map order is
// meaningless; use SortDateKeys.
type Grouping map[string][]fixtures.FixtureWithTeams

// FilterFixtures drops fixtures that kicked off before the start of today
// (UTC) when hidePrevious is set. Fixtures without a kickoff are kept. With
// hidePrevious unset the input slice itself is returned.
func FilterFixtures(items []fixtures.FixtureWithTeams, hidePrevious bool, now time.Time) []fixtures.FixtureWithTeams {
	if !hidePrevious {
		return items
	}
	cutoff := timeutil.StartOfDayUTC(now)
	out := make([]fixtures.FixtureWithTeams, 0, len(items))
	for _, f := range items {
		if !f.HasKickoff() || !f.Kickoff().Before(cutoff) {
			out = append(out, f)
		}
	}
	return out
}

// FilterByTeam keeps the fixtures the team plays in. The input is not modified.
func FilterByTeam(items []fixtures.FixtureWithTeams, teamID int) []fixtures.FixtureWithTeams {
	out := make([]fixtures.FixtureWithTeams, 0)
	for _, f := range items {
		if f.Involves(teamID) {
			out = append(out, f)
		}
	}
	return out
}

// DateKey returns the UTC grouping key for a fixture.
func DateKey(f fixtures.Fixture) string {
	return DateKeyIn(f, time.UTC)
}

// DateKeyIn returns the kickoff's calendar date in loc, or TBCKey.
func DateKeyIn(f fixtures.Fixture, loc *time.Location) string {
	if !f.HasKickoff() {
		return TBCKey
	}
	return timeutil.FormatDate(f.Kickoff().In(loc))
}

// GroupByDate partitions fixtures by UTC kickoff date. Each group is ordered
// by kickoff, then id.
func GroupByDate(items []fixtures.FixtureWithTeams) Grouping {
	return GroupByDateIn(items, time.UTC)
}

// GroupByDateIn partitions fixtures by their kickoff date in loc.
func GroupByDateIn(items []fixtures.FixtureWithTeams, loc *time.Location) Grouping {
	groups := make(Grouping)
	for _, f := range items {
		key := DateKeyIn(f.Fixture, loc)
		groups[key] = append(groups[key], f)
	}
	for _, group := range groups {
		sortFixtures(group)
	}
	return groups
}

// SortDateKeys returns the keys in chronological order. Keys that are not
// dates (TBCKey) go last.
func SortDateKeys(keys []string) []string {
	out := make([]string, len(keys))
	copy(out, keys)
	sort.SliceStable(out, func(i, j int) bool {
		ti, errI := timeutil.ParseDate(out[i])
		tj, errJ := timeutil.ParseDate(out[j])
		switch {
		case errI != nil && errJ != nil:
			return out[i] < out[j]
		case errI != nil:
			return false
		case errJ != nil:
			return true
		default:
			return ti.Before(tj)
		}
	})
	return out
}

// FindNextFixture returns the earliest scheduled fixture kicking off strictly
// after now, or nil.
func FindNextFixture(items []fixtures.FixtureWithTeams, now time.Time) *fixtures.FixtureWithTeams {
	var next *fixtures.FixtureWithTeams
	for i := range items {
		f := items[i]
		if !f.HasKickoff() || !f.Kickoff().After(now) {
			continue
		}
		if !fixtures.IsScheduled(f.Fixture) {
			continue
		}
		if next == nil || before(f.Fixture, next.Fixture) {
			candidate := f
			next = &candidate
		}
	}
	return next
}

func sortFixtures(items []fixtures.FixtureWithTeams) {
	sort.SliceStable(items, func(i, j int) bool {
		return before(items[i].Fixture, items[j].Fixture)
	})
}

// before orders by kickoff then id; fixtures without kickoff sort last.
func before(a, b fixtures.Fixture) bool {
	switch {
	case a.HasKickoff() && !b.HasKickoff():
		return true
	case !a.HasKickoff() && b.HasKickoff():
		return false
	case a.HasKickoff() && !a.Kickoff().Equal(b.Kickoff()):
		return a.Kickoff().Before(b.Kickoff())
	default:
		return a.ID < b.ID
	}
}
