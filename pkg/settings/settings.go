// Package settings reads the per-user preferences owned by the settings
// endpoints. Nothing here writes to user_settings.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smith3v/focusdesk/pkg/clock"
	"github.com/smith3v/focusdesk/pkg/db"
	"github.com/smith3v/focusdesk/pkg/deadline"
	"github.com/smith3v/focusdesk/pkg/logger"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("user settings not found")

// Preferences is the resolved view of a user's settings: the timezone is
// loaded and the cadence is guaranteed to be in range.
type Preferences struct {
	UserID          string
	Location        *time.Location
	ReviewDayOfWeek int
	ReviewTimeHour  int
	TelegramChatID  int64
}

type Reader struct {
	db *gorm.DB
}

func NewReader(gdb *gorm.DB) *Reader {
	return &Reader{db: gdb}
}

// Get returns the raw settings row for userID.
func (r *Reader) Get(ctx context.Context, userID string) (*db.UserSettings, error) {
	var row db.UserSettings
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err == nil {
		return &row, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	return nil, err
}

// Preferences resolves userID's settings. An unknown timezone falls back to
// UTC and an out-of-range cadence falls back to the defaults.
func (r *Reader) Preferences(ctx context.Context, userID string) (Preferences, error) {
	row, err := r.Get(ctx, userID)
	if err != nil {
		return Preferences{}, err
	}
	return Resolve(*row), nil
}

// Defaults are the preferences of a user with no stored settings.
func Defaults(userID string) Preferences {
	return Resolve(db.UserSettings{
		UserID:          userID,
		Timezone:        db.DefaultTimezone,
		ReviewDayOfWeek: db.DefaultReviewDayOfWeek,
		ReviewTimeHour:  db.DefaultReviewTimeHour,
	})
}

// Resolve turns a stored row into Preferences.
func Resolve(row db.UserSettings) Preferences {
	prefs := Preferences{
		UserID:          row.UserID,
		Location:        clock.LocationOrUTC(row.Timezone),
		ReviewDayOfWeek: row.ReviewDayOfWeek,
		ReviewTimeHour:  row.ReviewTimeHour,
	}
	if err := deadline.ValidateCadence(row.ReviewDayOfWeek, row.ReviewTimeHour); err != nil {
		logger.Warn("stored cadence out of range, using defaults", "user_id", row.UserID, "error", err)
		prefs.ReviewDayOfWeek = db.DefaultReviewDayOfWeek
		prefs.ReviewTimeHour = db.DefaultReviewTimeHour
	}
	if row.TelegramChatID != nil {
		prefs.TelegramChatID = *row.TelegramChatID
	}
	return prefs
}
