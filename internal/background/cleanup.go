// Package background runs periodic maintenance jobs next to the HTTP server.
package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper drops expired in-memory or cached records and reports how many went.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// ExpiredRowCleaner deletes expired rows from the database.
type ExpiredRowCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// DefaultInterval is used when a non-positive interval is supplied.
const DefaultInterval = 5 * time.Minute

// CleanupManager periodically sweeps throttle state and expired verification tokens.
type CleanupManager struct {
	sweepers map[string]Sweeper
	cleaners map[string]ExpiredRowCleaner
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewCleanupManager(logger *slog.Logger, interval time.Duration) *CleanupManager {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &CleanupManager{
		sweepers: make(map[string]Sweeper),
		cleaners: make(map[string]ExpiredRowCleaner),
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// AddSweeper registers a named sweeper. Call before Start.
func (cm *CleanupManager) AddSweeper(name string, s Sweeper) {
	cm.sweepers[name] = s
}

// AddCleaner registers a named database cleaner. Call before Start.
func (cm *CleanupManager) AddCleaner(name string, c ExpiredRowCleaner) {
	cm.cleaners[name] = c
}

// Start runs a cleanup pass immediately and then on every tick until ctx is
// cancelled or Stop is called.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce executes every registered job once. A failing job does not stop the others.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for name, s := range cm.sweepers {
		if n := s.Sweep(cleanupCtx); n > 0 {
			cm.logger.Info("expired records swept", slog.String("job", name), slog.Int("removed", n))
		}
	}

	for name, c := range cm.cleaners {
		rows, err := c.CleanupExpired(cleanupCtx)
		if err != nil {
			cm.logger.Error("cleanup failed", slog.String("job", name), slog.Any("error", err))
			continue
		}
		if rows > 0 {
			cm.logger.Info("expired rows deleted", slog.String("job", name), slog.Int64("rows_deleted", rows))
		}
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
