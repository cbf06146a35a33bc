// Package changes detects whether a refetch produced data worth republishing.
package changes

import (
	"time"

	"github.com/preston-bernstein/epl-fixtures-service/internal/domain/fixtures"
)

// HasSignificantChange compares two fixture collections on the fields that
// affect display. Fixtures are matched by id, so ordering does not matter.
func HasSignificantChange(prev, next []fixtures.Fixture) bool {
	if len(prev) != len(next) {
		return true
	}
	byID := make(map[int]fixtures.Fixture, len(prev))
	for _, f := range prev {
		byID[f.ID] = f
	}
	if len(byID) != len(prev) {
		// Duplicate ids on the old side; fall back to positional comparison.
		for i := range prev {
			if !sameSignificant(prev[i], next[i]) {
				return true
			}
		}
		return false
	}
	for _, f := range next {
		old, ok := byID[f.ID]
		if !ok || !sameSignificant(old, f) {
			return true
		}
		delete(byID, f.ID)
	}
	return len(byID) != 0
}

func sameSignificant(a, b fixtures.Fixture) bool {
	return a.ID == b.ID &&
		a.HomeTeamID == b.HomeTeamID &&
		a.AwayTeamID == b.AwayTeamID &&
		sameInt(a.HomeScore, b.HomeScore) &&
		sameInt(a.AwayScore, b.AwayScore) &&
		sameTime(a.KickoffTime, b.KickoffTime) &&
		a.Started == b.Started &&
		a.Finished == b.Finished &&
		a.Minutes == b.Minutes
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Share returns prev when next carries no significant change, otherwise next.
// Callers compare the returned slice header against prev to skip republishing.
func Share(prev, next []fixtures.Fixture) ([]fixtures.Fixture, bool) {
	if prev != nil && !HasSignificantChange(prev, next) {
		return prev, false
	}
	return next, true
}
