// pkg/db/models.go
package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultTimezone        = "UTC"
	DefaultReviewDayOfWeek = 0 // Sunday
	DefaultReviewTimeHour  = 18
)

// UserSettings is written by the settings endpoints; the core only reads it.
type UserSettings struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          string `gorm:"not null;uniqueIndex"`
	Timezone        string `gorm:"not null;default:UTC"`
	ReviewDayOfWeek int    `gorm:"not null"`
	ReviewTimeHour  int    `gorm:"not null"`
	TelegramChatID  *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WeeklyReview is the cycle record. CycleStart is a civil day stored at
// 12:00 UTC so no timezone conversion can move it to a neighbouring date.
type WeeklyReview struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	UserID        string     `gorm:"not null;uniqueIndex:idx_review_user_cycle;index:idx_review_user_created" json:"userId"`
	CycleStart    time.Time  `gorm:"not null;uniqueIndex:idx_review_user_cycle" json:"cycleStart"`
	Wins          string     `gorm:"not null;default:''" json:"wins"`
	Challenges    string     `gorm:"not null;default:''" json:"challenges"`
	Lessons       string     `gorm:"not null;default:''" json:"lessons"`
	NextWeekFocus string     `gorm:"not null;default:''" json:"nextWeekFocus"`
	CreatedAt     time.Time  `gorm:"index:idx_review_user_created" json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	CompletedAt   *time.Time `json:"completedAt"`
}

func (r *WeeklyReview) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Reminder.Completed only ever moves from false to true.
type Reminder struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	UserID      string         `gorm:"not null;index" json:"userId"`
	Title       string         `gorm:"not null" json:"title"`
	Notes       string         `gorm:"not null;default:''" json:"notes,omitempty"`
	Datetime    time.Time      `gorm:"not null;index:idx_reminder_due" json:"datetime"`
	Completed   bool           `gorm:"not null;default:false;index:idx_reminder_due" json:"completed"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	Data        datatypes.JSON `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (r *Reminder) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// PushSubscription is keyed by Endpoint: a device delivers through exactly one
// active endpoint, so re-subscribing moves the row to the new owner.
type PushSubscription struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	UserID    string         `gorm:"not null;index" json:"userId"`
	Endpoint  string         `gorm:"not null;uniqueIndex" json:"endpoint"`
	Keys      datatypes.JSON `gorm:"not null" json:"keys"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (s *PushSubscription) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Task rows belong to the task CRUD service. The core runs aggregate reads only.
type Task struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	UserID    string     `gorm:"not null;index:idx_task_user_pending" json:"userId"`
	Title     string     `gorm:"not null" json:"title"`
	DueDate   *time.Time `gorm:"index" json:"dueDate"`
	DoToday   bool       `gorm:"not null;default:false" json:"doToday"`
	Completed bool       `gorm:"not null;default:false;index:idx_task_user_pending" json:"completed"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Models lists every table the core migrates.
func Models() []any {
	return []any{&UserSettings{}, &WeeklyReview{}, &Reminder{}, &PushSubscription{}, &Task{}}
}
