// Package reminders delivers due reminders. The sweeper pushes them while the
// client is away; the poller hands them to a connected client. Both complete
// reminders with a conditional update so either may run over the other.
package reminders

import (
	"context"
	"sync"
	"time"

	"github.com/smith3v/focusdesk/pkg/db"
	"github.com/smith3v/focusdesk/pkg/logger"
	"github.com/smith3v/focusdesk/pkg/notify"
	"gorm.io/gorm"
)

const defaultSweepBatch = 500

// Channel is one delivery route for a due reminder.
type Channel interface {
	Name() string
	Notify(ctx context.Context, reminder db.Reminder, payload *notify.Payload) (notify.Result, error)
}

type SweepResult struct {
	Due       int  `json:"due"`
	Completed int  `json:"completed"`
	Pending   int  `json:"pending"`
	Skipped   bool `json:"skipped,omitempty"`
}

type Sweeper struct {
	db       *gorm.DB
	channels []Channel
	now      func() time.Time
	batch    int
	running  sync.Mutex
}

func NewSweeper(gdb *gorm.DB, now func() time.Time, channels ...Channel) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{db: gdb, channels: channels, now: now, batch: defaultSweepBatch}
}

// Start runs a sweep every interval until ctx is done.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := s.RunOnce(ctx)
			if err != nil {
				logger.Error("reminder sweep failed", "error", err)
				continue
			}
			if result.Due > 0 {
				logger.Info("reminder sweep finished", "due", result.Due, "completed", result.Completed, "pending", result.Pending)
			}
		}
	}
}

// RunOnce delivers every incomplete reminder whose time has come. A reminder
// is completed when a channel delivered it or when no channel had anywhere to
// send it; otherwise it stays pending for the next run. A call that overlaps
// a running sweep returns immediately with Skipped set.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	if !s.running.TryLock() {
		logger.Debug("reminder sweep already running, skipping")
		return SweepResult{Skipped: true}, nil
	}
	defer s.running.Unlock()

	now := s.now().UTC()
	var result SweepResult
	var cursor *db.Reminder
	for {
		page, err := s.duePage(ctx, now, cursor)
		if err != nil {
			return result, err
		}
		result.Due += len(page)
		for _, reminder := range page {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if !s.deliver(ctx, reminder) {
				result.Pending++
				continue
			}
			completed, err := complete(ctx, s.db, now, "id = ?", reminder.ID)
			if err != nil {
				logger.Error("failed to complete reminder", "reminder_id", reminder.ID, "user_id", reminder.UserID, "error", err)
				result.Pending++
				continue
			}
			result.Completed += int(completed)
		}
		if len(page) < s.batch {
			return result, nil
		}
		cursor = &page[len(page)-1]
	}
}

// duePage returns the next batch of due reminders ordered by (datetime, id),
// strictly after cursor when one is given. Pending reminders therefore never
// hide the ones queued behind them.
func (s *Sweeper) duePage(ctx context.Context, now time.Time, cursor *db.Reminder) ([]db.Reminder, error) {
	query := s.db.WithContext(ctx).
		Where("completed = ? AND datetime <= ?", false, now)
	if cursor != nil {
		query = query.Where("(datetime > ? OR (datetime = ? AND id > ?))", cursor.Datetime, cursor.Datetime, cursor.ID)
	}
	var page []db.Reminder
	err := query.
		Order("datetime ASC").
		Order("id ASC").
		Limit(s.batch).
		Find(&page).Error
	return page, err
}

// deliver reports whether the reminder is done with.
func (s *Sweeper) deliver(ctx context.Context, reminder db.Reminder) bool {
	payload := notify.ReminderPayload(reminder)

	var total notify.Result
	channelFailed := false
	for _, channel := range s.channels {
		res, err := channel.Notify(ctx, reminder, payload)
		if err != nil {
			logger.Error("reminder channel failed", "channel", channel.Name(), "reminder_id", reminder.ID, "user_id", reminder.UserID, "error", err)
			channelFailed = true
			continue
		}
		total = total.Add(res)
	}

	if total.Succeeded > 0 {
		return true
	}
	if total.Attempted == 0 && !channelFailed {
		logger.Info("no delivery channel for reminder, completing", "reminder_id", reminder.ID, "user_id", reminder.UserID)
		return true
	}
	logger.Warn("reminder not delivered, will retry", "reminder_id", reminder.ID, "user_id", reminder.UserID, "attempted", total.Attempted)
	return false
}

// complete flips the incomplete reminders matching query to completed and
// returns how many rows this call changed.
func complete(ctx context.Context, gdb *gorm.DB, now time.Time, query string, args ...any) (int64, error) {
	res := gdb.WithContext(ctx).
		Model(&db.Reminder{}).
		Where(query, args...).
		Where("completed = ?", false).
		Updates(map[string]any{
			"completed":    true,
			"completed_at": now,
		})
	return res.RowsAffected, res.Error
}
