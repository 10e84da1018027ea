package recurrence

import (
	"io"
	"log/slog"
	"time"
)

// Engine wraps Generate with configurable limits and an optional expansion
// cache. It is safe for concurrent use. Call Close when done to stop the
// cache's cleanup goroutine.
type Engine struct {
	cache  *ExpansionCache
	config EngineConfig
	limits limits
	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used to report truncated expansions.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine with DefaultEngineConfig.
func NewEngine(opts ...EngineOption) *Engine {
	return NewEngineWithConfig(DefaultEngineConfig, opts...)
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		config: config,
		limits: newLimits(config.MaxOccurrences, config.MaxSteps),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if config.CacheEnabled {
		e.cache = NewExpansionCache(config.CacheConfig)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Expand returns the occurrences of r inside w, like Generate, using the
// engine's limits and cache.
func (e *Engine) Expand(r Rule, anchor time.Time, w Window) []time.Time {
	if e.cache != nil {
		if cached, ok := e.cache.Get(r, anchor, w, e.limits.maxOccurrences); ok {
			return cached
		}
	}

	occurrences := generate(r, anchor, w, e.limits)
	if len(occurrences) >= e.limits.maxOccurrences {
		e.logger.Warn("recurrence expansion truncated",
			"rule", r.String(),
			"anchor", anchor,
			"window_start", w.Start,
			"window_end", w.End,
			"limit", e.limits.maxOccurrences)
	}

	if e.cache != nil {
		e.cache.Set(r, anchor, w, e.limits.maxOccurrences, occurrences)
	}
	return occurrences
}

// HasOccurrenceInRange is the package-level HasOccurrenceInRange bounded by
// the engine's step limit.
func (e *Engine) HasOccurrenceInRange(r Rule, anchor time.Time, duration time.Duration, rangeStart, rangeEnd time.Time) bool {
	return hasOccurrenceInRange(r, anchor, duration, rangeStart, rangeEnd, e.limits.maxSteps)
}

// HasOccurrenceInRange reports whether any occurrence of r, lasting duration,
// overlaps [rangeStart, rangeEnd]. Overlap follows start <= rangeEnd and
// end >= rangeStart.
func HasOccurrenceInRange(r Rule, anchor time.Time, duration time.Duration, rangeStart, rangeEnd time.Time) bool {
	return hasOccurrenceInRange(r, anchor, duration, rangeStart, rangeEnd, MaxSteps)
}

func hasOccurrenceInRange(r Rule, anchor time.Time, duration time.Duration, rangeStart, rangeEnd time.Time, maxSteps int) bool {
	if duration < 0 {
		duration = 0
	}
	w := NewWindow(rangeStart.Add(-duration), rangeEnd)
	return len(generate(r, anchor, w, newLimits(1, maxSteps))) > 0
}

// CacheStats reports cache occupancy. ok is false when caching is disabled.
func (e *Engine) CacheStats() (stats CacheStats, ok bool) {
	if e.cache == nil {
		return CacheStats{}, false
	}
	return e.cache.Stats(), true
}

// Close releases the engine's cache.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}
