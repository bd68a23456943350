// pkg/db/repository.go
package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/smith3v/focusdesk/pkg/config"
	"github.com/smith3v/focusdesk/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the configured database and brings the schema up to date.
// The handle is returned to the caller and passed to each store explicitly.
func Open(cfg config.DatabaseConfig, gormLevel string) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	gormLogger, gormErr := newGormLogger(gormLevel)
	if gormErr != nil {
		logger.Error("invalid gorm log level", "value", gormLevel, "error", gormErr)
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.Driver, "error", err)
		return nil, err
	}
	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverPostgres, "":
		dsn := "host=" + cfg.Host +
			" user=" + cfg.User +
			" password=" + cfg.Password +
			" dbname=" + cfg.DBName +
			" port=" + strconv.Itoa(cfg.Port) +
			" sslmode=" + cfg.SSLMode +
			" TimeZone=UTC"
		return postgres.Open(dsn), nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		return sqlite.Open(cfg.Path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate runs AutoMigrate for every model and then the data fixups.
func Migrate(gdb *gorm.DB) error {
	if gdb == nil {
		return errors.New("nil database")
	}
	if err := gdb.AutoMigrate(Models()...); err != nil {
		logger.Error("failed to auto-migrate database", "error", err)
		return err
	}
	if err := migrateSettingsDefaults(gdb); err != nil {
		logger.Error("failed to migrate settings defaults", "error", err)
		return err
	}
	if err := migrateCycleStartsToNoon(gdb); err != nil {
		logger.Error("failed to migrate cycle starts", "error", err)
		return err
	}
	return nil
}

// migrateSettingsDefaults repairs rows written by older settings clients that
// left the timezone blank or the cadence out of range.
func migrateSettingsDefaults(gdb *gorm.DB) error {
	if err := gdb.Exec(`
UPDATE user_settings
SET timezone = ?
WHERE timezone IS NULL OR TRIM(timezone) = ''
`, DefaultTimezone).Error; err != nil {
		return err
	}
	if err := gdb.Exec(`
UPDATE user_settings
SET review_day_of_week = ?
WHERE review_day_of_week < 0 OR review_day_of_week > 6
`, DefaultReviewDayOfWeek).Error; err != nil {
		return err
	}
	return gdb.Exec(`
UPDATE user_settings
SET review_time_hour = ?
WHERE review_time_hour < 0 OR review_time_hour > 23
`, DefaultReviewTimeHour).Error
}

// migrateCycleStartsToNoon moves reviews saved with a local-midnight marker to
// the noon marker of that local date. The date is the one of the nearest UTC
// midnight, which is exact for offsets within 12 hours of UTC. Rows that would
// collide with an existing noon marker are left untouched and logged.
func migrateCycleStartsToNoon(gdb *gorm.DB) error {
	var legacy []WeeklyReview
	err := gdb.FindInBatches(&legacy, 200, func(tx *gorm.DB, _ int) error {
		for _, review := range legacy {
			start := review.CycleStart.UTC()
			if start.Hour() == 12 && start.Minute() == 0 && start.Second() == 0 && start.Nanosecond() == 0 {
				continue
			}
			day := start.Add(12 * time.Hour).Truncate(24 * time.Hour)
			noon := day.Add(12 * time.Hour)
			res := tx.Model(&WeeklyReview{}).
				Where("id = ?", review.ID).
				Update("cycle_start", noon)
			if res.Error != nil {
				if isUniqueViolation(res.Error) {
					logger.Error("skipping colliding cycle start", "review_id", review.ID, "user_id", review.UserID)
					continue
				}
				return res.Error
			}
		}
		return nil
	}).Error
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
