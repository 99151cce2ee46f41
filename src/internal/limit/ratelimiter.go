package limit

import (
	"sync/atomic"

	"gelfship/src/internal/config"
	"gelfship/src/internal/core"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-pipeline entry rate with a drop policy.
// Logging backends must not push errors back into the logging pipeline,
// so over-limit entries are dropped and counted.
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *log.Logger

	maxEntrySizeBytes int64
	droppedByRate     atomic.Uint64
	droppedBySize     atomic.Uint64
}

// NewRateLimiter creates a pipeline rate limiter from configuration.
// Returns nil when no rate is configured.
func NewRateLimiter(cfg config.RateLimitConfig, logger *log.Logger) *RateLimiter {
	if cfg.Rate <= 0 && cfg.MaxEntrySizeBytes <= 0 {
		return nil
	}

	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		burst := int(cfg.Burst)
		if burst <= 0 {
			burst = int(cfg.Rate)
			if burst < 1 {
				burst = 1
			}
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}

	return &RateLimiter{
		limiter:           limiter,
		logger:            logger,
		maxEntrySizeBytes: cfg.MaxEntrySizeBytes,
	}
}

// Allow reports whether an entry may pass
func (l *RateLimiter) Allow(entry core.LogEntry) bool {
	if l == nil {
		return true
	}

	if l.maxEntrySizeBytes > 0 && entry.RawSize > l.maxEntrySizeBytes {
		l.droppedBySize.Add(1)
		return false
	}

	if l.limiter != nil && !l.limiter.Allow() {
		l.droppedByRate.Add(1)
		return false
	}

	return true
}

// GetStats returns rate limiter statistics
func (l *RateLimiter) GetStats() map[string]any {
	if l == nil {
		return map[string]any{"enabled": false}
	}

	stats := map[string]any{
		"enabled":               true,
		"dropped_total":         l.droppedByRate.Load(),
		"dropped_by_size_total": l.droppedBySize.Load(),
		"max_entry_size_bytes":  l.maxEntrySizeBytes,
	}
	if l.limiter != nil {
		stats["tokens"] = l.limiter.Tokens()
	}
	return stats
}
