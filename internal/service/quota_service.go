package service

import (
	"sync"
	"time"

	"mediagrab/internal/model"
	"mediagrab/pkg/logger"

	"go.uber.org/zap"
)

const bytesPerMB = 1024 * 1024

// QuotaEntry tracks quota usage per IP
type QuotaEntry struct {
	IP         string
	UsedBytes  int64
	ResetTime  time.Time
	LastUpdate time.Time
}

// QuotaService manages per-IP daily download quotas. Usage is charged with
// the size of each produced file.
type QuotaService struct {
	cfg    *model.QuotaConfig
	quotas map[string]*QuotaEntry
	mu     sync.Mutex
	now    func() time.Time

	quitChan chan struct{}
	stopOnce sync.Once
}

// NewQuotaService creates a new quota service
func NewQuotaService(cfg *model.QuotaConfig) *QuotaService {
	qs := &QuotaService{
		cfg:      cfg,
		quotas:   make(map[string]*QuotaEntry),
		now:      time.Now,
		quitChan: make(chan struct{}),
	}

	if cfg.Enabled {
		go qs.resetRoutine()
	}

	return qs
}

// CheckQuota reports whether ip may start another download, with the
// remaining allowance in MB.
func (qs *QuotaService) CheckQuota(ip string) (bool, int64) {
	if !qs.cfg.Enabled {
		return true, qs.cfg.DailyLimitMB
	}

	qs.mu.Lock()
	entry := qs.entryLocked(ip)
	remaining := qs.remainingLocked(entry)
	qs.mu.Unlock()

	if remaining <= 0 {
		logger.Logger.Warn("Quota exhausted", zap.String("ip", ip), zap.Int64("limit_mb", qs.cfg.DailyLimitMB))
		return false, 0
	}
	return true, remaining / bytesPerMB
}

// AddUsage charges sizeBytes to ip
func (qs *QuotaService) AddUsage(ip string, sizeBytes int64) {
	if !qs.cfg.Enabled || sizeBytes <= 0 {
		return
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()

	entry := qs.entryLocked(ip)
	entry.UsedBytes += sizeBytes
	entry.LastUpdate = qs.now()

	logger.Logger.Debug("Quota usage updated",
		zap.String("ip", ip),
		zap.Int64("used_mb", entry.UsedBytes/bytesPerMB),
		zap.Int64("limit_mb", qs.cfg.DailyLimitMB))
}

// GetQuotaInfo returns current quota info for IP
func (qs *QuotaService) GetQuotaInfo(ip string) model.QuotaInfo {
	if !qs.cfg.Enabled {
		return model.QuotaInfo{Enabled: false}
	}

	qs.mu.Lock()
	defer qs.mu.Unlock()

	entry := qs.entryLocked(ip)
	return model.QuotaInfo{
		Enabled:     true,
		UsedMB:      entry.UsedBytes / bytesPerMB,
		LimitMB:     qs.cfg.DailyLimitMB,
		RemainingMB: qs.remainingLocked(entry) / bytesPerMB,
		ResetTime:   entry.ResetTime,
	}
}

// entryLocked returns the entry for ip, creating or resetting it as needed.
func (qs *QuotaService) entryLocked(ip string) *QuotaEntry {
	now := qs.now()
	entry, exists := qs.quotas[ip]
	if !exists {
		entry = &QuotaEntry{IP: ip, ResetTime: qs.calculateResetTime(), LastUpdate: now}
		qs.quotas[ip] = entry
		logger.Logger.Info("New quota entry created", zap.String("ip", ip), zap.Time("reset_time", entry.ResetTime))
		return entry
	}

	if now.After(entry.ResetTime) {
		entry.UsedBytes = 0
		entry.ResetTime = qs.calculateResetTime()
		entry.LastUpdate = now
		logger.Logger.Info("Quota reset for IP", zap.String("ip", ip), zap.Time("new_reset_time", entry.ResetTime))
	}
	return entry
}

func (qs *QuotaService) remainingLocked(entry *QuotaEntry) int64 {
	remaining := qs.cfg.DailyLimitMB*bytesPerMB - entry.UsedBytes
	if remaining < 0 {
		return 0
	}
	return remaining
}

// calculateResetTime calculates next reset time based on config
func (qs *QuotaService) calculateResetTime() time.Time {
	now := qs.now()
	resetTime := time.Date(now.Year(), now.Month(), now.Day(), qs.cfg.ResetHour, qs.cfg.ResetMinute, 0, 0, now.Location())

	if !resetTime.After(now) {
		resetTime = resetTime.AddDate(0, 0, 1)
	}
	return resetTime
}

// resetRoutine periodically drops expired entries
func (qs *QuotaService) resetRoutine() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-qs.quitChan:
			logger.Logger.Info("Quota service stopped")
			return
		case <-ticker.C:
			qs.checkAndResetQuotas()
		}
	}
}

// checkAndResetQuotas removes entries whose reset time has passed
func (qs *QuotaService) checkAndResetQuotas() int {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	now := qs.now()
	removed := 0
	for ip, entry := range qs.quotas {
		if now.After(entry.ResetTime) {
			delete(qs.quotas, ip)
			removed++
		}
	}

	if removed > 0 {
		logger.Logger.Info("Quota reset completed", zap.Int("entries_reset", removed))
	}
	return removed
}

// Stop stops the quota service
func (qs *QuotaService) Stop() {
	qs.stopOnce.Do(func() {
		close(qs.quitChan)
	})
}
