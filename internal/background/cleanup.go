package background

import (
	"context"
	"log/slog"
	"time"
)

// OTPPruner is the slice of the passcode service the cleanup loop needs
type OTPPruner interface {
	Prune(ctx context.Context, age time.Duration) (int64, error)
}

// CleanupManager periodically removes aged-out passcode rows. Used codes
// are kept inside the retention window as an audit trail; only age
// removes them.
type CleanupManager struct {
	otps      OTPPruner
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	otps OTPPruner,
	logger *slog.Logger,
	interval time.Duration,
	retention time.Duration,
) *CleanupManager {
	return &CleanupManager{
		otps:      otps,
		logger:    logger,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := cm.otps.Prune(cleanupCtx, cm.retention)
	if err != nil {
		cm.logger.Error("failed to prune expired passcodes", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("passcode pruning completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
