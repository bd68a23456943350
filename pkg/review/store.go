package review

import (
	"context"
	"errors"
	"time"

	"github.com/smith3v/focusdesk/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Fields carries the free-form review content. A nil field is left as stored
// when the record already exists.
type Fields struct {
	Wins          *string `json:"wins,omitempty"`
	Challenges    *string `json:"challenges,omitempty"`
	Lessons       *string `json:"lessons,omitempty"`
	NextWeekFocus *string `json:"nextWeekFocus,omitempty"`
}

func (f Fields) columns() []string {
	var cols []string
	if f.Wins != nil {
		cols = append(cols, "wins")
	}
	if f.Challenges != nil {
		cols = append(cols, "challenges")
	}
	if f.Lessons != nil {
		cols = append(cols, "lessons")
	}
	if f.NextWeekFocus != nil {
		cols = append(cols, "next_week_focus")
	}
	return cols
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Store persists one weekly review per (user, cycle start).
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb, now: time.Now}
}

// Upsert creates the review for (userID, cycleStart) or merges fields into the
// existing one in a single statement. completed_at is stamped on every write.
func (s *Store) Upsert(ctx context.Context, userID string, cycleStart time.Time, fields Fields) (db.WeeklyReview, error) {
	now := s.now().UTC()
	cycleStart = cycleStart.UTC()

	row := db.WeeklyReview{
		UserID:        userID,
		CycleStart:    cycleStart,
		Wins:          deref(fields.Wins),
		Challenges:    deref(fields.Challenges),
		Lessons:       deref(fields.Lessons),
		NextWeekFocus: deref(fields.NextWeekFocus),
		CreatedAt:     now,
		UpdatedAt:     now,
		CompletedAt:   &now,
	}
	updates := append(fields.columns(), "completed_at", "updated_at")

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "cycle_start"},
		},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&row).Error
	if err != nil {
		return db.WeeklyReview{}, err
	}

	var stored db.WeeklyReview
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND cycle_start = ?", userID, cycleStart).
		First(&stored).Error
	return stored, err
}

// FindLatestSince returns the most recently created review with created_at at
// or after since, or nil.
func (s *Store) FindLatestSince(ctx context.Context, userID string, since time.Time) (*db.WeeklyReview, error) {
	var latest db.WeeklyReview
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since.UTC()).
		Order("created_at DESC").
		First(&latest).Error
	if err == nil {
		return &latest, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

// FindCompletedSince returns the most recently completed review with
// completed_at at or after since, or nil.
func (s *Store) FindCompletedSince(ctx context.Context, userID string, since time.Time) (*db.WeeklyReview, error) {
	var latest db.WeeklyReview
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND completed_at >= ?", userID, since.UTC()).
		Order("completed_at DESC").
		First(&latest).Error
	if err == nil {
		return &latest, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

// ListForUser returns up to limit reviews, newest cycle first.
func (s *Store) ListForUser(ctx context.Context, userID string, limit int) ([]db.WeeklyReview, error) {
	reviews := []db.WeeklyReview{}
	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("cycle_start DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&reviews).Error
	return reviews, err
}
