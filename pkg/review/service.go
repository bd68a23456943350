package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/smith3v/focusdesk/pkg/db"
	"github.com/smith3v/focusdesk/pkg/logger"
	"github.com/smith3v/focusdesk/pkg/settings"
)

const maxFieldRunes = 10000

var ErrValidation = errors.New("invalid review")

type Upserter interface {
	Upsert(ctx context.Context, userID string, cycleStart time.Time, fields Fields) (db.WeeklyReview, error)
}

// Service saves reviews against the cycle derived from the caller's settings.
type Service struct {
	settings PreferenceSource
	store    Upserter
	now      func() time.Time
}

func NewService(prefs PreferenceSource, store Upserter, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{settings: prefs, store: store, now: now}
}

func (s *Service) Save(ctx context.Context, userID string, fields Fields) (db.WeeklyReview, error) {
	if strings.TrimSpace(userID) == "" {
		return db.WeeklyReview{}, fmt.Errorf("%w: missing user", ErrValidation)
	}
	if err := fields.validate(); err != nil {
		return db.WeeklyReview{}, err
	}

	prefs, err := s.settings.Preferences(ctx, userID)
	if errors.Is(err, settings.ErrNotFound) {
		logger.Info("no settings stored, saving review with default cadence", "user_id", userID)
		prefs = settings.Defaults(userID)
	} else if err != nil {
		return db.WeeklyReview{}, err
	}

	cycleStart, err := CycleStartFor(s.now(), prefs.Location, prefs.ReviewDayOfWeek, prefs.ReviewTimeHour)
	if err != nil {
		return db.WeeklyReview{}, err
	}
	return s.store.Upsert(ctx, userID, cycleStart, fields)
}

func (f Fields) validate() error {
	for name, value := range map[string]*string{
		"wins":          f.Wins,
		"challenges":    f.Challenges,
		"lessons":       f.Lessons,
		"nextWeekFocus": f.NextWeekFocus,
	} {
		if value != nil && utf8.RuneCountInString(*value) > maxFieldRunes {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrValidation, name, maxFieldRunes)
		}
	}
	return nil
}
