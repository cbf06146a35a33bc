package config

import "time"

const (
	envPort            = "PORT"
	envProvider        = "PROVIDER"
	envAdminToken      = "ADMIN_TOKEN"
	envLogLevel        = "LOG_LEVEL"
	envLogFormat       = "LOG_FORMAT"
	envHidePrevious    = "HIDE_PREVIOUS_FIXTURES"
	envDefaultTimezone = "DEFAULT_TIMEZONE"

	envFPLBaseURL     = "FPL_BASE_URL"
	envFPLUserAgent   = "FPL_USER_AGENT"
	envFPLMinInterval = "FPL_MIN_INTERVAL"

	envFetchAttempts    = "FETCH_MAX_ATTEMPTS"
	envFetchBackoffBase = "FETCH_BACKOFF_BASE"
	envFetchBackoffMax  = "FETCH_BACKOFF_MAX"

	envPollLiveInterval     = "POLL_LIVE_INTERVAL"
	envPollLiveStale        = "POLL_LIVE_STALE"
	envPollImminentInterval = "POLL_IMMINENT_INTERVAL"
	envPollImminentStale    = "POLL_IMMINENT_STALE"
	envPollNormalInterval   = "POLL_NORMAL_INTERVAL"
	envPollNormalStale      = "POLL_NORMAL_STALE"
	envPollQuietInterval    = "POLL_QUIET_INTERVAL"
	envPollQuietStale       = "POLL_QUIET_STALE"

	envCacheBackend = "CACHE_BACKEND"
	envCachePath    = "CACHE_PATH"
	envCacheMax     = "CACHE_MAX_BYTES"
	envCacheMaxAge  = "CACHE_MAX_AGE"
	envCacheCleanup = "CACHE_CLEANUP_INTERVAL"

	envMetricsPort  = "METRICS_PORT"
	envMetricsOn    = "METRICS_ENABLED"
	envOtelEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOtelService  = "OTEL_SERVICE_NAME"
	envOtelInsecure = "OTEL_EXPORTER_OTLP_INSECURE"
	envOtelInterval = "OTEL_METRIC_EXPORT_INTERVAL"

	defaultPort         = "4000"
	defaultProvider     = "fpl"
	defaultHidePrevious = false
	defaultTimezone     = "UTC"

	defaultFPLBaseURL = "https://fantasy.premierleague.com/api"
	// The public FPL API has no published quota; space calls out anyway.
	defaultFPLMinInterval = 2 * Duration(time.Second)

	defaultFetchAttempts    = 3
	defaultFetchBackoffBase = Duration(time.Second)
	defaultFetchBackoffMax  = 30 * Duration(time.Second)

	defaultCacheBackend = "file"
	defaultCachePath    = "data/cache"
	defaultCacheMax     = 5 << 20
	defaultCacheMaxAge  = 7 * 24 * Duration(time.Hour)
	defaultCacheCleanup = 6 * Duration(time.Hour)

	defaultMetricsPort = "9090"
	defaultServiceName = "epl-fixtures-service"
	defaultExportEvery = 15 * Duration(time.Second)
)
