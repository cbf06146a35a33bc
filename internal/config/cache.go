package config

// CacheConfig selects and bounds the persistent cache.
type CacheConfig struct {
	Backend         string
	Path            string
	MaxBytes        int64
	MaxAge          Duration
	CleanupInterval Duration
}

func loadCache() CacheConfig {
	return CacheConfig{
		Backend:         envOrDefault(envCacheBackend, defaultCacheBackend),
		Path:            envOrDefault(envCachePath, defaultCachePath),
		MaxBytes:        int64(intEnvOrDefault(envCacheMax, defaultCacheMax)),
		MaxAge:          durationEnvOrDefault(envCacheMaxAge, defaultCacheMaxAge),
		CleanupInterval: durationEnvOrDefault(envCacheCleanup, defaultCacheCleanup),
	}
}
