package db

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smith3v/focusdesk/pkg/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
	})
	return gdb
}

func TestMigrateCreatesTables(t *testing.T) {
	gdb := openMemoryDB(t)
	if err := Migrate(gdb); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	if err := Migrate(gdb); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
	for _, model := range Models() {
		if !gdb.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T", model)
		}
	}
	if !gdb.Migrator().HasIndex(&WeeklyReview{}, "idx_review_user_cycle") {
		t.Fatalf("expected unique index on (user_id, cycle_start)")
	}
}

func TestMigrateSettingsDefaults(t *testing.T) {
	gdb := openMemoryDB(t)
	if err := Migrate(gdb); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	rows := []UserSettings{
		{UserID: "blank-tz", Timezone: "UTC", ReviewDayOfWeek: 3, ReviewTimeHour: 9},
		{UserID: "bad-day", Timezone: "Europe/Berlin", ReviewDayOfWeek: 9, ReviewTimeHour: 9},
		{UserID: "bad-hour", Timezone: "Europe/Berlin", ReviewDayOfWeek: 1, ReviewTimeHour: 31},
	}
	for _, row := range rows {
		if err := gdb.Create(&row).Error; err != nil {
			t.Fatalf("failed to seed %s: %v", row.UserID, err)
		}
	}
	if err := gdb.Model(&UserSettings{}).Where("user_id = ?", "blank-tz").Update("timezone", " ").Error; err != nil {
		t.Fatalf("failed to blank timezone: %v", err)
	}

	if err := migrateSettingsDefaults(gdb); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	load := func(userID string) UserSettings {
		var settings UserSettings
		if err := gdb.Where("user_id = ?", userID).First(&settings).Error; err != nil {
			t.Fatalf("failed to load %s: %v", userID, err)
		}
		return settings
	}
	if got := load("blank-tz").Timezone; got != DefaultTimezone {
		t.Fatalf("expected blank timezone to become %q, got %q", DefaultTimezone, got)
	}
	if got := load("bad-day").ReviewDayOfWeek; got != DefaultReviewDayOfWeek {
		t.Fatalf("expected day reset to %d, got %d", DefaultReviewDayOfWeek, got)
	}
	if got := load("bad-hour").ReviewTimeHour; got != DefaultReviewTimeHour {
		t.Fatalf("expected hour reset to %d, got %d", DefaultReviewTimeHour, got)
	}
	if got := load("bad-hour").ReviewDayOfWeek; got != 1 {
		t.Fatalf("valid day should be preserved, got %d", got)
	}
}

func TestMigrateCycleStartsToNoon(t *testing.T) {
	gdb := openMemoryDB(t)
	if err := Migrate(gdb); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	midnight := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	legacy := WeeklyReview{UserID: "u1", CycleStart: midnight, Wins: "shipped"}
	if err := gdb.Create(&legacy).Error; err != nil {
		t.Fatalf("failed to seed legacy review: %v", err)
	}
	noon := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	current := WeeklyReview{UserID: "u1", CycleStart: noon}
	if err := gdb.Create(&current).Error; err != nil {
		t.Fatalf("failed to seed current review: %v", err)
	}

	// Local midnights of 2025-01-05 in Tokyo and in New York.
	tokyo := WeeklyReview{UserID: "east", CycleStart: time.Date(2025, 1, 4, 15, 0, 0, 0, time.UTC)}
	newYork := WeeklyReview{UserID: "west", CycleStart: time.Date(2025, 1, 5, 5, 0, 0, 0, time.UTC)}
	for _, review := range []*WeeklyReview{&tokyo, &newYork} {
		if err := gdb.Create(review).Error; err != nil {
			t.Fatalf("failed to seed legacy review: %v", err)
		}
	}

	if err := migrateCycleStartsToNoon(gdb); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	zoned := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{tokyo.ID, newYork.ID} {
		var migrated WeeklyReview
		if err := gdb.First(&migrated, "id = ?", id).Error; err != nil {
			t.Fatalf("failed to reload review: %v", err)
		}
		if !migrated.CycleStart.Equal(zoned) {
			t.Fatalf("review %s (%s): expected cycle start %v, got %v", id, migrated.UserID, zoned, migrated.CycleStart)
		}
	}

	var reloaded WeeklyReview
	if err := gdb.First(&reloaded, "id = ?", legacy.ID).Error; err != nil {
		t.Fatalf("failed to reload legacy review: %v", err)
	}
	want := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	if !reloaded.CycleStart.Equal(want) {
		t.Fatalf("expected cycle start %v, got %v", want, reloaded.CycleStart)
	}

	var untouched WeeklyReview
	if err := gdb.First(&untouched, "id = ?", current.ID).Error; err != nil {
		t.Fatalf("failed to reload current review: %v", err)
	}
	if !untouched.CycleStart.Equal(noon) {
		t.Fatalf("noon marker should be untouched, got %v", untouched.CycleStart)
	}
}

func TestBeforeCreateAssignsIDs(t *testing.T) {
	gdb := openMemoryDB(t)
	if err := Migrate(gdb); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	reminder := Reminder{UserID: "u1", Title: "Stretch", Datetime: time.Now().UTC()}
	if err := gdb.Create(&reminder).Error; err != nil {
		t.Fatalf("failed to create reminder: %v", err)
	}
	if _, err := uuid.Parse(reminder.ID); err != nil {
		t.Fatalf("expected uuid id, got %q: %v", reminder.ID, err)
	}
}

func TestOpenSQLite(t *testing.T) {
	path := t.TempDir() + "/nested/focusdesk.db"
	gdb, err := Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: path}, "silent")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access underlying DB: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if !gdb.Migrator().HasTable(&PushSubscription{}) {
		t.Fatalf("expected push_subscriptions table")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(config.DatabaseConfig{Driver: "oracle"}, ""); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
