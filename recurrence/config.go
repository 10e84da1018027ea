package recurrence

import "time"

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// Expansion limits
	MaxOccurrences int // Occurrences returned per expansion, DefaultMaxOccurrences when <= 0
	MaxSteps       int // Internal iterations per expansion, MaxSteps when <= 0
}

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	CacheEnabled:   true,
	CacheConfig:    DefaultCacheConfig,
	MaxOccurrences: DefaultMaxOccurrences,
	MaxSteps:       MaxSteps,
}

// HighPerformanceConfig is optimized for high-traffic scenarios
var HighPerformanceConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute,
		MaxEntries:      5000,
		CleanupInterval: 10 * time.Minute,
	},
	MaxOccurrences: 500,
	MaxSteps:       MaxSteps,
}

// LowMemoryConfig is optimized for memory-constrained environments
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 2 * time.Minute,
	},
	MaxOccurrences: 200,
	MaxSteps:       MaxSteps,
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	CacheEnabled:   false,
	MaxOccurrences: DefaultMaxOccurrences,
	MaxSteps:       MaxSteps,
}
