package reminders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smith3v/focusdesk/pkg/db"
	"github.com/smith3v/focusdesk/pkg/logger"
	"github.com/smith3v/focusdesk/pkg/settings"
	"gorm.io/gorm"
)

const dueSoonWindow = 24 * time.Hour

var ErrUnauthorized = errors.New("reminder belongs to another user")

type TaskReader interface {
	CountPendingForDay(ctx context.Context, userID string, now time.Time, loc *time.Location) (int64, error)
	DueBetween(ctx context.Context, userID string, from, to time.Time) ([]db.Task, error)
}

type PreferenceSource interface {
	Preferences(ctx context.Context, userID string) (settings.Preferences, error)
}

type PollResult struct {
	Reminders      []db.Reminder `json:"reminders"`
	DailyTaskCount int64         `json:"dailyTaskCount"`
	TasksDueSoon   []db.Task     `json:"tasksDueSoon"`
}

// Poller serves a connected client. It never completes anything on read;
// the client acknowledges what it has shown.
type Poller struct {
	db    *gorm.DB
	tasks TaskReader
	prefs PreferenceSource
	now   func() time.Time
}

func NewPoller(gdb *gorm.DB, tasks TaskReader, prefs PreferenceSource, now func() time.Time) *Poller {
	if now == nil {
		now = time.Now
	}
	return &Poller{db: gdb, tasks: tasks, prefs: prefs, now: now}
}

func (p *Poller) Poll(ctx context.Context, userID string) (PollResult, error) {
	now := p.now().UTC()

	reminders := []db.Reminder{}
	err := p.db.WithContext(ctx).
		Where("user_id = ? AND completed = ? AND datetime <= ?", userID, false, now).
		Order("datetime ASC").
		Find(&reminders).Error
	if err != nil {
		return PollResult{}, err
	}

	loc := time.UTC
	if prefs, err := p.prefs.Preferences(ctx, userID); err == nil {
		loc = prefs.Location
	} else if !errors.Is(err, settings.ErrNotFound) {
		logger.Warn("poll using UTC, settings unavailable", "user_id", userID, "error", err)
	}

	count, err := p.tasks.CountPendingForDay(ctx, userID, now, loc)
	if err != nil {
		return PollResult{}, err
	}
	dueSoon, err := p.tasks.DueBetween(ctx, userID, now, now.Add(dueSoonWindow))
	if err != nil {
		return PollResult{}, err
	}

	return PollResult{
		Reminders:      reminders,
		DailyTaskCount: count,
		TasksDueSoon:   dueSoon,
	}, nil
}

// Acknowledge completes the listed reminders for userID. If any listed id
// belongs to another user nothing is written. Unknown and already completed
// ids are ignored. It returns the number of reminders this call completed.
func (p *Poller) Acknowledge(ctx context.Context, userID string, ids []string) (int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	var owners []db.Reminder
	err := p.db.WithContext(ctx).
		Select("id", "user_id").
		Where("id IN ?", ids).
		Find(&owners).Error
	if err != nil {
		return 0, err
	}
	for _, owner := range owners {
		if owner.UserID != userID {
			logger.Warn("rejected acknowledgement of foreign reminder", "user_id", userID, "reminder_id", owner.ID)
			return 0, ErrUnauthorized
		}
	}

	return complete(ctx, p.db, p.now().UTC(), "id IN ? AND user_id = ?", ids, userID)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
