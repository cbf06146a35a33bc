package config

import "github.com/preston-bernstein/epl-fixtures-service/internal/view"

// Config holds runtime configuration for the server.
type Config struct {
	Port       string
	Provider   string
	AdminToken string
	FPL        FPLConfig
	Fetch      FetchConfig
	Poll       PollConfig
	Cache      CacheConfig
	Display    DisplayConfig
	Metrics    MetricsConfig
	Log        LogConfig
}

// DisplayConfig holds the default view settings; requests may override them.
type DisplayConfig struct {
	HidePreviousFixtures bool
	Timezone             string
}

// Settings returns the defaults as view settings.
func (d DisplayConfig) Settings() view.Settings {
	return view.Settings{
		HidePreviousFixtures: d.HidePreviousFixtures,
		SelectedTimezone:     d.Timezone,
	}
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Port:       envOrDefault(envPort, defaultPort),
		Provider:   envOrDefault(envProvider, defaultProvider),
		AdminToken: envOrDefault(envAdminToken, ""),
		FPL:        loadFPL(),
		Fetch:      loadFetch(),
		Poll:       loadPoll(),
		Cache:      loadCache(),
		Display: DisplayConfig{
			HidePreviousFixtures: boolEnvOrDefault(envHidePrevious, defaultHidePrevious),
			Timezone:             envOrDefault(envDefaultTimezone, defaultTimezone),
		},
		Metrics: loadMetrics(),
		Log: LogConfig{
			Level:  envOrDefault(envLogLevel, ""),
			Format: envOrDefault(envLogFormat, ""),
		},
	}
}
