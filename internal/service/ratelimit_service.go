package service

import (
	"sync"
	"time"

	"mediagrab/internal/model"
	"mediagrab/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultLimiterIdle = 30 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitService keeps a token bucket per client IP
type RateLimitService struct {
	cfg      *model.RateLimitConfig
	limit    rate.Limit
	burst    int
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	now      func() time.Time

	quitChan chan struct{}
	stopOnce sync.Once
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(cfg *model.RateLimitConfig) *RateLimitService {
	burst := cfg.BurstSize
	if burst < 1 {
		burst = 1
	}
	rls := &RateLimitService{
		cfg:      cfg,
		limit:    rate.Limit(float64(cfg.RequestsPerMinute) / 60),
		burst:    burst,
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
		quitChan: make(chan struct{}),
	}

	if cfg.Enabled {
		go rls.cleanupRoutine()
	}

	return rls
}

// IsAllowed takes one token from the bucket of ip
func (rls *RateLimitService) IsAllowed(ip string) bool {
	if !rls.cfg.Enabled {
		return true
	}

	now := rls.now()
	if !rls.getLimiter(ip, now).AllowN(now, 1) {
		logger.Logger.Warn("Rate limit exceeded", zap.String("ip", ip), zap.Int("limit_per_minute", rls.cfg.RequestsPerMinute))
		return false
	}
	return true
}

// GetRemaining returns the whole tokens left for ip, or -1 when disabled.
func (rls *RateLimitService) GetRemaining(ip string) int {
	if !rls.cfg.Enabled {
		return -1
	}
	now := rls.now()
	tokens := rls.getLimiter(ip, now).TokensAt(now)
	if tokens < 0 {
		return 0
	}
	return int(tokens)
}

func (rls *RateLimitService) getLimiter(ip string, now time.Time) *rate.Limiter {
	rls.mu.Lock()
	defer rls.mu.Unlock()

	entry, exists := rls.limiters[ip]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rls.limit, rls.burst)}
		rls.limiters[ip] = entry
		logger.Logger.Debug("New rate limit entry created", zap.String("ip", ip))
	}
	entry.lastSeen = now
	return entry.limiter
}

// cleanupRoutine periodically drops idle limiters
func (rls *RateLimitService) cleanupRoutine() {
	ticker := time.NewTicker(rls.idleAfter())
	defer ticker.Stop()

	for {
		select {
		case <-rls.quitChan:
			logger.Logger.Info("Rate limit service stopped")
			return
		case <-ticker.C:
			rls.cleanup()
		}
	}
}

// cleanup removes limiters not used within the cleanup interval
func (rls *RateLimitService) cleanup() int {
	rls.mu.Lock()
	defer rls.mu.Unlock()

	cutoff := rls.now().Add(-rls.idleAfter())
	removed := 0
	for ip, entry := range rls.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rls.limiters, ip)
			removed++
		}
	}

	if removed > 0 {
		logger.Logger.Debug("Rate limit entries cleaned up", zap.Int("removed", removed), zap.Int("remaining", len(rls.limiters)))
	}
	return removed
}

func (rls *RateLimitService) idleAfter() time.Duration {
	if rls.cfg.CleanupInterval <= 0 {
		return defaultLimiterIdle
	}
	return time.Duration(rls.cfg.CleanupInterval) * time.Second
}

// Stop stops the rate limit service
func (rls *RateLimitService) Stop() {
	rls.stopOnce.Do(func() {
		close(rls.quitChan)
	})
}
