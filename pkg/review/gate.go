// Package review owns the weekly review cycle: the record store, the cycle
// marker and the lock state derived from the user's cadence.
package review

import (
	"context"
	"errors"
	"time"

	"github.com/smith3v/focusdesk/pkg/clock"
	"github.com/smith3v/focusdesk/pkg/db"
	"github.com/smith3v/focusdesk/pkg/deadline"
	"github.com/smith3v/focusdesk/pkg/logger"
	"github.com/smith3v/focusdesk/pkg/settings"
)

type State string

const (
	Unlocked State = "UNLOCKED"
	Locked   State = "LOCKED"
	Bypassed State = "BYPASSED"
)

type Status struct {
	State          State      `json:"state"`
	Deadline       *time.Time `json:"deadline"`
	LastReviewDate *time.Time `json:"lastReviewDate"`
}

func (s Status) IsLocked() bool {
	return s.State == Locked
}

type PreferenceSource interface {
	Preferences(ctx context.Context, userID string) (settings.Preferences, error)
}

type RecordFinder interface {
	FindLatestSince(ctx context.Context, userID string, since time.Time) (*db.WeeklyReview, error)
	FindCompletedSince(ctx context.Context, userID string, since time.Time) (*db.WeeklyReview, error)
}

// Gate decides whether a user has to write the review before doing anything
// else. It holds no per-user state; every call reads settings and records.
type Gate struct {
	settings PreferenceSource
	records  RecordFinder
	now      func() time.Time
}

func NewGate(prefs PreferenceSource, records RecordFinder, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{settings: prefs, records: records, now: now}
}

// Evaluate applies, in order: bypass, a review written since the current
// deadline, the deadline having passed. A user without settings is evaluated
// on the default cadence. Read failures leave the user unlocked.
func (g *Gate) Evaluate(ctx context.Context, userID string, bypass bool) Status {
	now := g.now().UTC()
	status := Status{State: Unlocked}
	if bypass {
		status.State = Bypassed
	}

	prefs, err := g.settings.Preferences(ctx, userID)
	if errors.Is(err, settings.ErrNotFound) {
		prefs, err = settings.Defaults(userID), nil
	}
	if err != nil {
		logger.Warn("review gate failing open: settings unavailable", "user_id", userID, "error", err)
		return status
	}
	current, err := deadline.CalculateIn(now, prefs.Location, prefs.ReviewDayOfWeek, prefs.ReviewTimeHour)
	if err != nil {
		logger.Warn("review gate failing open: cadence unusable", "user_id", userID, "error", err)
		return status
	}
	at := current.At.UTC()
	status.Deadline = &at

	latest, err := g.latestSince(ctx, userID, at)
	if err != nil {
		logger.Error("review gate failing open: record lookup failed", "user_id", userID, "error", err)
		return status
	}
	if latest != nil {
		reviewed := latest.CreatedAt.UTC()
		if latest.CompletedAt != nil {
			reviewed = latest.CompletedAt.UTC()
		}
		status.LastReviewDate = &reviewed
	}

	switch {
	case bypass:
		status.State = Bypassed
	case latest != nil:
		status.State = Unlocked
	case !now.Before(at):
		status.State = Locked
	default:
		status.State = Unlocked
	}
	return status
}

// latestSince finds a review created since the deadline, or one created
// earlier in the same cycle and saved again after it. The second case happens
// when the user moves the cadence later within the cycle day.
func (g *Gate) latestSince(ctx context.Context, userID string, at time.Time) (*db.WeeklyReview, error) {
	latest, err := g.records.FindLatestSince(ctx, userID, at)
	if err != nil || latest != nil {
		return latest, err
	}
	return g.records.FindCompletedSince(ctx, userID, at)
}

// CycleStartFor is the storage marker of the cycle in effect at now: the
// civil date of the current deadline, at noon UTC.
func CycleStartFor(now time.Time, loc *time.Location, day, hour int) (time.Time, error) {
	current, err := deadline.CalculateIn(now, loc, day, hour)
	if err != nil {
		return time.Time{}, err
	}
	return clock.CivilNoon(current.Local), nil
}
