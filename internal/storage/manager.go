package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mediagrab/internal/metrics"
	"mediagrab/internal/model"
	"mediagrab/pkg/logger"

	"go.uber.org/zap"
)

const defaultCleanupInterval = 10 * time.Second

// SweepStats summarises one cleanup pass
type SweepStats struct {
	Deleted   int
	Missing   int
	Failed    int
	Requeued  int
	Remaining int
}

// Manager owns the download directory and deletes produced files once their
// grace period has passed. Scheduling is safe from any goroutine; sweeps run
// on the routine started by Start or directly through Sweep.
type Manager struct {
	cfg *model.StorageConfig

	mu      sync.Mutex
	pending []model.CleanupTask

	now    func() time.Time
	remove func(string) error

	quitChan  chan struct{}
	doneChan  chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
}

// NewManager creates a new storage manager
func NewManager(cfg *model.StorageConfig) *Manager {
	return &Manager{
		cfg:      cfg,
		now:      time.Now,
		remove:   os.Remove,
		quitChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start starts the cleanup routine
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		m.mu.Lock()
		m.started = true
		m.mu.Unlock()
		go m.cleanupRoutine()
	})
}

// Stop stops the cleanup routine after one last sweep of due tasks.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.quitChan)
	})

	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if started {
		<-m.doneChan
	}
}

// Schedule registers filePath for deletion no earlier than delay from now.
func (m *Manager) Schedule(filePath string, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	deleteAt := m.now().Add(delay)

	m.mu.Lock()
	m.pending = append(m.pending, model.CleanupTask{FilePath: filePath, NotBeforeTime: deleteAt})
	n := len(m.pending)
	m.mu.Unlock()

	metrics.SetCleanupPending(n)
	logger.Logger.Info("Scheduled cleanup",
		zap.String("path", filePath),
		zap.Time("delete_at", deleteAt))
}

// cleanupRoutine periodically removes expired files
func (m *Manager) cleanupRoutine() {
	defer close(m.doneChan)

	interval := m.interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Logger.Info("Storage cleanup routine started",
		zap.Duration("interval", interval),
		zap.Int("file_ttl_seconds", m.cfg.FileTTLSeconds))

	for {
		select {
		case <-m.quitChan:
			m.Sweep()
			logger.Logger.Info("Storage cleanup routine stopped")
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep deletes every due file and keeps the rest for the next pass. The
// pending list is swapped out under the lock so deletions never block
// Schedule callers.
func (m *Manager) Sweep() SweepStats {
	now := m.now()

	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	var stats SweepStats
	keep := make([]model.CleanupTask, 0, len(batch))

	for _, task := range batch {
		if now.Before(task.NotBeforeTime) {
			keep = append(keep, task)
			continue
		}

		err := m.deleteFile(task.FilePath)
		switch {
		case err == nil:
			stats.Deleted++
			metrics.RecordCleanup("deleted")
			logger.Logger.Info("Deleted temporary file", zap.String("path", task.FilePath))
		case os.IsNotExist(err):
			stats.Missing++
			metrics.RecordCleanup("missing")
			logger.Logger.Warn("File already deleted or not found", zap.String("path", task.FilePath))
		default:
			task.Attempts++
			if task.Attempts < m.cfg.MaxDeleteAttempts {
				task.NotBeforeTime = now.Add(time.Duration(task.Attempts) * m.interval())
				keep = append(keep, task)
				stats.Requeued++
				metrics.RecordCleanup("requeued")
				logger.Logger.Warn("Failed to delete file, will retry",
					zap.String("path", task.FilePath),
					zap.Int("attempt", task.Attempts),
					zap.Error(err))
				continue
			}
			stats.Failed++
			metrics.RecordCleanup("failed")
			logger.Logger.Error("Failed to delete file, giving up",
				zap.String("path", task.FilePath),
				zap.Int("attempts", task.Attempts),
				zap.Error(err))
		}
	}

	m.mu.Lock()
	m.pending = append(m.pending, keep...)
	stats.Remaining = len(m.pending)
	m.mu.Unlock()

	metrics.SetCleanupPending(stats.Remaining)
	if stats.Deleted > 0 || stats.Failed > 0 || stats.Missing > 0 {
		logger.Logger.Info("Storage cleanup completed",
			zap.Int("deleted_count", stats.Deleted),
			zap.Int("missing_count", stats.Missing),
			zap.Int("error_count", stats.Failed),
			zap.Int("remaining", stats.Remaining))
	}
	return stats
}

func (m *Manager) deleteFile(path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while deleting %s: %v", path, r)
		}
	}()
	return m.remove(path)
}

// ReclaimOrphans schedules files already in the download directory whose
// names start with one of prefixes followed by an underscore, due once they
// are maxAge old. Pending deletions do not survive a restart, so this picks
// up whatever the previous process left behind. Other files are left alone.
func (m *Manager) ReclaimOrphans(maxAge time.Duration, prefixes ...string) (int, error) {
	entries, err := os.ReadDir(m.cfg.DownloadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	now := m.now()
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !hasOwnedPrefix(entry.Name(), prefixes) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		delay := maxAge - now.Sub(info.ModTime())
		m.Schedule(filepath.Join(m.cfg.DownloadDir, entry.Name()), delay)
		count++
	}

	if count > 0 {
		logger.Logger.Info("Reclaimed leftover files", zap.Int("count", count), zap.String("dir", m.cfg.DownloadDir))
	}
	return count, nil
}

func hasOwnedPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p+"_") {
			return true
		}
	}
	return false
}

// Pending returns the number of files waiting for deletion
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// IsPending reports whether filePath has a cleanup task queued
func (m *Manager) IsPending(filePath string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range m.pending {
		if task.FilePath == filePath {
			return true
		}
	}
	return false
}

// EnsureDownloadDir ensures download directory exists
func (m *Manager) EnsureDownloadDir() error {
	return os.MkdirAll(m.cfg.DownloadDir, 0755)
}

// DownloadDir returns the directory produced files are written to
func (m *Manager) DownloadDir() string {
	return m.cfg.DownloadDir
}

// GracePeriod returns how long a produced file stays readable
func (m *Manager) GracePeriod() time.Duration {
	return time.Duration(m.cfg.FileTTLSeconds) * time.Second
}

func (m *Manager) interval() time.Duration {
	if m.cfg.CleanupInterval <= 0 {
		return defaultCleanupInterval
	}
	return time.Duration(m.cfg.CleanupInterval) * time.Second
}
