package freshness

import (
	"time"

	"github.com/preston-bernstein/epl-fixtures-service/internal/timeutil"
)

// Policy maps tiers to stale times and refetch intervals.
// NORMAL has a weekend and a wider weekday variant.
type Policy struct {
	LiveStale        time.Duration
	LiveInterval     time.Duration
	ImminentStale    time.Duration
	ImminentInterval time.Duration
	NormalStale      time.Duration
	NormalInterval   time.Duration
	QuietStale       time.Duration
	QuietInterval    time.Duration
}

// DefaultPolicy keeps live scores at most 30s old while leaving quiet weekdays
// at an hourly cadence.
func DefaultPolicy() Policy {
	return Policy{
		LiveStale:        30 * time.Second,
		LiveInterval:     30 * time.Second,
		ImminentStale:    5 * time.Minute,
		ImminentInterval: 2 * time.Minute,
		NormalStale:      2 * time.Hour,
		NormalInterval:   30 * time.Minute,
		QuietStale:       4 * time.Hour,
		QuietInterval:    time.Hour,
	}
}

// Normalize fills non-positive values from the defaults and falls back to the
// default policy entirely when tiers are not strictly ordered.
func (p Policy) Normalize() Policy {
	d := DefaultPolicy()
	fill := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&p.LiveStale, d.LiveStale)
	fill(&p.LiveInterval, d.LiveInterval)
	fill(&p.ImminentStale, d.ImminentStale)
	fill(&p.ImminentInterval, d.ImminentInterval)
	fill(&p.NormalStale, d.NormalStale)
	fill(&p.NormalInterval, d.NormalInterval)
	fill(&p.QuietStale, d.QuietStale)
	fill(&p.QuietInterval, d.QuietInterval)

	if !p.ordered() {
		return d
	}
	return p
}

func (p Policy) ordered() bool {
	return p.LiveStale < p.ImminentStale && p.ImminentStale < p.NormalStale && p.NormalStale <= p.QuietStale &&
		p.LiveInterval < p.ImminentInterval && p.ImminentInterval < p.NormalInterval && p.NormalInterval <= p.QuietInterval
}

// StaleTime returns how long fetched data stays valid for the tier.
func (p Policy) StaleTime(tier Tier) time.Duration {
	switch tier {
	case TierLive:
		return p.LiveStale
	case TierImminent:
		return p.ImminentStale
	default:
		return p.NormalStale
	}
}

// RefetchInterval returns the background refetch period for the tier.
func (p Policy) RefetchInterval(tier Tier) time.Duration {
	switch tier {
	case TierLive:
		return p.LiveInterval
	case TierImminent:
		return p.ImminentInterval
	default:
		return p.NormalInterval
	}
}

// StaleTimeAt is StaleTime with the weekday widening applied to NORMAL.
func (p Policy) StaleTimeAt(tier Tier, now time.Time) time.Duration {
	if tier == TierNormal && !timeutil.IsWeekendUTC(now) {
		return p.QuietStale
	}
	return p.StaleTime(tier)
}

// RefetchIntervalAt is RefetchInterval with the weekday widening applied to NORMAL.
func (p Policy) RefetchIntervalAt(tier Tier, now time.Time) time.Duration {
	if tier == TierNormal && !timeutil.IsWeekendUTC(now) {
		return p.QuietInterval
	}
	return p.RefetchInterval(tier)
}
