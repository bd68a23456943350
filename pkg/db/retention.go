package db

import (
	"context"
	"time"

	"github.com/smith3v/focusdesk/pkg/logger"
	"gorm.io/gorm"
)

const RetentionInterval = time.Hour

// PruneCompletedReminders deletes reminders completed at or before cutoff.
// Incomplete reminders are never touched, however old.
func PruneCompletedReminders(ctx context.Context, gdb *gorm.DB, cutoff time.Time) (int64, error) {
	res := gdb.WithContext(ctx).
		Where("completed = ? AND completed_at <= ?", true, cutoff.UTC()).
		Delete(&Reminder{})
	return res.RowsAffected, res.Error
}

// StartRetention prunes completed reminders older than keepDays every
// interval until ctx is done. A non-positive keepDays disables pruning.
func StartRetention(ctx context.Context, gdb *gorm.DB, interval time.Duration, keepDays int) {
	if keepDays <= 0 {
		logger.Info("reminder retention disabled")
		return
	}
	if interval <= 0 {
		interval = RetentionInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cutoff := now.UTC().AddDate(0, 0, -keepDays)
			deleted, err := PruneCompletedReminders(ctx, gdb, cutoff)
			if err != nil {
				logger.Error("failed to prune completed reminders", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("pruned completed reminders", "deleted", deleted, "cutoff", cutoff)
			}
		}
	}
}
