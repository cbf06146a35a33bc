package config

import "github.com/preston-bernstein/epl-fixtures-service/internal/freshness"

// PollConfig holds per-tier refetch intervals and stale times.
type PollConfig struct {
	LiveInterval     Duration
	LiveStale        Duration
	ImminentInterval Duration
	ImminentStale    Duration
	NormalInterval   Duration
	NormalStale      Duration
	QuietInterval    Duration
	QuietStale       Duration
}

func loadPoll() PollConfig {
	d := freshness.DefaultPolicy()
	return PollConfig{
		LiveInterval:     durationEnvOrDefault(envPollLiveInterval, d.LiveInterval),
		LiveStale:        durationEnvOrDefault(envPollLiveStale, d.LiveStale),
		ImminentInterval: durationEnvOrDefault(envPollImminentInterval, d.ImminentInterval),
		ImminentStale:    durationEnvOrDefault(envPollImminentStale, d.ImminentStale),
		NormalInterval:   durationEnvOrDefault(envPollNormalInterval, d.NormalInterval),
		NormalStale:      durationEnvOrDefault(envPollNormalStale, d.NormalStale),
		QuietInterval:    durationEnvOrDefault(envPollQuietInterval, d.QuietInterval),
		QuietStale:       durationEnvOrDefault(envPollQuietStale, d.QuietStale),
	}
}

// Policy converts the configuration to a normalized freshness policy. An
// ordering that would poll a calmer tier faster than a busier one falls back
// to the defaults.
func (p PollConfig) Policy() freshness.Policy {
	return freshness.Policy{
		LiveStale:        p.LiveStale,
		LiveInterval:     p.LiveInterval,
		ImminentStale:    p.ImminentStale,
		ImminentInterval: p.ImminentInterval,
		NormalStale:      p.NormalStale,
		NormalInterval:   p.NormalInterval,
		QuietStale:       p.QuietStale,
		QuietInterval:    p.QuietInterval,
	}.Normalize()
}
