package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smith3v/focusdesk/pkg/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenTestDB returns a migrated in-memory sqlite database private to t.
// A single connection keeps concurrent writers from tripping over sqlite's
// shared-cache table locks.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
	})
	return gdb
}

// SeedSettings stores settings for userID with the given cadence.
func SeedSettings(t *testing.T, gdb *gorm.DB, userID, tz string, day, hour int) db.UserSettings {
	t.Helper()
	settings := db.UserSettings{
		UserID:          userID,
		Timezone:        tz,
		ReviewDayOfWeek: day,
		ReviewTimeHour:  hour,
	}
	if err := gdb.Create(&settings).Error; err != nil {
		t.Fatalf("failed to seed settings for %s: %v", userID, err)
	}
	return settings
}
