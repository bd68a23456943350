// Package tasks runs the read-only aggregate queries the notification core
// needs over tasks owned by the task service.
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/smith3v/focusdesk/pkg/clock"
	"github.com/smith3v/focusdesk/pkg/db"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// CountPendingForDay counts incomplete tasks flagged for today or due within
// the local calendar day containing now.
func (s *Store) CountPendingForDay(ctx context.Context, userID string, now time.Time, loc *time.Location) (int64, error) {
	start := clock.StartOfDay(now, loc)
	end := clock.EndOfDay(now, loc)

	var count int64
	err := s.db.WithContext(ctx).
		Model(&db.Task{}).
		Where("user_id = ? AND completed = ?", userID, false).
		Where(s.db.Where("do_today = ?", true).
			Or("due_date >= ? AND due_date < ?", start.UTC(), end.UTC())).
		Count(&count).Error
	return count, err
}

// EarliestPendingDue returns the incomplete task with the earliest due date,
// or nil when no pending task has one.
func (s *Store) EarliestPendingDue(ctx context.Context, userID string) (*db.Task, error) {
	var task db.Task
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND completed = ? AND due_date IS NOT NULL", userID, false).
		Order("due_date ASC").
		Order("id ASC").
		First(&task).Error
	if err == nil {
		return &task, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

// DueBetween lists incomplete tasks due in [from, to), earliest first.
func (s *Store) DueBetween(ctx context.Context, userID string, from, to time.Time) ([]db.Task, error) {
	tasks := []db.Task{}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND completed = ?", userID, false).
		Where("due_date >= ? AND due_date < ?", from.UTC(), to.UTC()).
		Order("due_date ASC").
		Find(&tasks).Error
	return tasks, err
}
