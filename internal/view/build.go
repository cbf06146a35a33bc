package view

import (
	"time"

	"github.com/preston-bernstein/epl-fixtures-service/internal/domain/fixtures"
	"github.com/preston-bernstein/epl-fixtures-service/internal/timeutil"
)

const (
	labelLayout   = "Monday 2 January 2006"
	kickoffLayout = "02 Jan 15:04"
	tbcLabel      = "Date to be confirmed"
)

// Item is one fixture as displayed: joined team names, status at render
// time and the kickoff in the viewer's timezone.
type Item struct {
	fixtures.FixtureWithTeams
	MatchStatus  fixtures.MatchStatus `json:"matchStatus"`
	KickoffLocal string               `json:"kickoffLocal,omitempty"`
}

// DateGroup is one day of fixtures.
type DateGroup struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Fixtures []Item `json:"fixtures"`
}

// View is the full materialized fixture list.
type View struct {
	Groups      []DateGroup `json:"groups"`
	Next        *Item       `json:"next,omitempty"`
	NextDate    string      `json:"nextDate,omitempty"`
	Timezone    string      `json:"timezone"`
	Total       int         `json:"total"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

// Build filters, groups and orders fixtures and finds the next one. Groups,
// labels and kickoff times follow settings.SelectedTimezone (UTC when empty or
// unknown); the hide-previous cutoff stays at the UTC start of day.
func Build(items []fixtures.FixtureWithTeams, settings Settings, now time.Time) View {
	loc := timeutil.ResolveLocation(settings.SelectedTimezone)
	filtered := FilterFixtures(items, settings.HidePreviousFixtures, now)
	grouped := GroupByDateIn(filtered, loc)

	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}

	v := View{
		Groups:      make([]DateGroup, 0, len(keys)),
		Timezone:    loc.String(),
		Total:       len(filtered),
		GeneratedAt: now.UTC(),
	}
	for _, key := range SortDateKeys(keys) {
		group := grouped[key]
		out := DateGroup{Key: key, Label: Label(key), Fixtures: make([]Item, 0, len(group))}
		for _, f := range group {
			out.Fixtures = append(out.Fixtures, NewItem(f, loc))
		}
		v.Groups = append(v.Groups, out)
	}

	if next := FindNextFixture(filtered, now); next != nil {
		item := NewItem(*next, loc)
		v.Next = &item
		v.NextDate = DateKeyIn(next.Fixture, loc)
	}
	return v
}

// NewItem renders a single fixture for display.
func NewItem(f fixtures.FixtureWithTeams, loc *time.Location) Item {
	item := Item{FixtureWithTeams: f, MatchStatus: fixtures.StatusOf(f.Fixture)}
	if f.HasKickoff() {
		item.KickoffLocal = f.Kickoff().In(loc).Format(kickoffLayout)
	}
	return item
}

// Label names a date group from its key.
func Label(key string) string {
	day, err := timeutil.ParseDate(key)
	if err != nil {
		return tbcLabel
	}
	return day.Format(labelLayout)
}
