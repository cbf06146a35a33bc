// Package freshness decides how aggressively fixture data should be refreshed.
//
// All decisions are made in UTC. A fixture set is LIVE when any match is in
// play, IMMINENT when a scheduled match kicks off on the same UTC calendar day,
// and NORMAL otherwise.
package freshness

import (
	"time"

	"github.com/preston-bernstein/epl-fixtures-service/internal/domain/fixtures"
	"github.com/preston-bernstein/epl-fixtures-service/internal/timeutil"
)

// Tier is the urgency classification driving polling cadence.
type Tier string

const (
	TierLive     Tier = "LIVE"
	TierImminent Tier = "IMMINENT"
	TierNormal   Tier = "NORMAL"
)

// Classify maps a fixture collection to its activity tier at now.
func Classify(items []fixtures.Fixture, now time.Time) Tier {
	return Summarize(items, now).Tier
}

// Summary explains a classification.
type Summary struct {
	Tier        Tier       `json:"tier"`
	Live        int        `json:"live"`
	Today       int        `json:"today"`
	NextKickoff *time.Time `json:"nextKickoff,omitempty"`
}

// Summarize counts live and same-day scheduled fixtures and picks the tier.
func Summarize(items []fixtures.Fixture, now time.Time) Summary {
	var s Summary
	for _, f := range items {
		switch {
		case fixtures.IsLive(f):
			s.Live++
		case fixtures.IsScheduled(f):
			ko := f.Kickoff()
			if timeutil.SameDayUTC(ko, now) {
				s.Today++
			}
			if ko.After(now) && (s.NextKickoff == nil || ko.Before(*s.NextKickoff)) {
				next := ko
				s.NextKickoff = &next
			}
		}
	}

	switch {
	case s.Live > 0:
		s.Tier = TierLive
	case s.Today > 0:
		s.Tier = TierImminent
	default:
		s.Tier = TierNormal
	}
	return s
}
