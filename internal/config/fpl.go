package config

// FPLConfig configures the Fantasy Premier League upstream.
type FPLConfig struct {
	BaseURL     string
	UserAgent   string
	MinInterval Duration
}

// FetchConfig configures the retry policy of upstream fetches.
type FetchConfig struct {
	MaxAttempts int
	BackoffBase Duration
	BackoffMax  Duration
}

func loadFPL() FPLConfig {
	return FPLConfig{
		BaseURL:     envOrDefault(envFPLBaseURL, defaultFPLBaseURL),
		UserAgent:   envOrDefault(envFPLUserAgent, ""),
		MinInterval: durationEnvOrDefault(envFPLMinInterval, defaultFPLMinInterval),
	}
}

func loadFetch() FetchConfig {
	return FetchConfig{
		MaxAttempts: intEnvOrDefault(envFetchAttempts, defaultFetchAttempts),
		BackoffBase: durationEnvOrDefault(envFetchBackoffBase, defaultFetchBackoffBase),
		BackoffMax:  durationEnvOrDefault(envFetchBackoffMax, defaultFetchBackoffMax),
	}
}
