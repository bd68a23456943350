package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/smith3v/focusdesk/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvPrefix = "FOCUSDESK_"

	defaultHTTPAddr          = ":8080"
	defaultSweepInterval     = 60
	defaultPushTTLSeconds    = 3600
	defaultPushTimeoutSecond = 10
	defaultSQLitePath        = "data/focusdesk.db"
	defaultRetentionDays     = 90
)

type Config struct {
	Database  DatabaseConfig  `json:"database" envPrefix:"DATABASE_"`
	HTTP      HTTPConfig      `json:"http" envPrefix:"HTTP_"`
	Push      PushConfig      `json:"push" envPrefix:"PUSH_"`
	Telegram  TelegramConfig  `json:"telegram" envPrefix:"TELEGRAM_"`
	Sweep     SweepConfig     `json:"sweep" envPrefix:"SWEEP_"`
	Logging   LoggingConfig   `json:"logging" envPrefix:"LOG_"`
	Retention RetentionConfig `json:"retention" envPrefix:"RETENTION_"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver" env:"DRIVER"`
	Host     string `json:"host" env:"HOST"`
	User     string `json:"user" env:"USER"`
	Password string `json:"password" env:"PASSWORD"`
	DBName   string `json:"dbname" env:"NAME"`
	Port     int    `json:"port" env:"PORT"`
	SSLMode  string `json:"sslmode" env:"SSLMODE"`
	// Path is the sqlite file used when Driver is "sqlite".
	Path string `json:"path" env:"PATH"`
}

type HTTPConfig struct {
	Addr string `json:"addr" env:"ADDR"`
}

type PushConfig struct {
	VAPIDPublicKey  string `json:"vapid_public_key" env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `json:"vapid_private_key" env:"VAPID_PRIVATE_KEY"`
	Subscriber      string `json:"subscriber" env:"SUBSCRIBER"`
	TTLSeconds      int    `json:"ttl_seconds" env:"TTL_SECONDS"`
	TimeoutSeconds  int    `json:"timeout_seconds" env:"TIMEOUT_SECONDS"`
}

// Enabled reports whether VAPID credentials are present.
func (p PushConfig) Enabled() bool {
	return strings.TrimSpace(p.VAPIDPublicKey) != "" && strings.TrimSpace(p.VAPIDPrivateKey) != ""
}

type TelegramConfig struct {
	Token string `json:"token" env:"TOKEN"`
}

type SweepConfig struct {
	IntervalSeconds int `json:"interval_seconds" env:"INTERVAL_SECONDS"`
}

// RetentionConfig bounds how long completed reminders are kept. A negative
// value keeps them forever.
type RetentionConfig struct {
	CompletedReminderDays int `json:"completed_reminder_days" env:"COMPLETED_REMINDER_DAYS"`
}

type LoggingConfig struct {
	Level     string `json:"level" env:"LEVEL"`
	File      string `json:"file" env:"FILE"`
	GormLevel string `json:"gorm_level" env:"GORM_LEVEL"`
}

var AppConfig Config

// LoadConfig reads filename into AppConfig, then applies FOCUSDESK_* environment
// overrides. A missing file is tolerated when the environment carries the rest.
func LoadConfig(filename string) error {
	var cfg Config
	if strings.TrimSpace(filename) != "" {
		if err := decodeFile(filename, &cfg); err != nil {
			if !os.IsNotExist(err) {
				logger.Error("failed to decode config file", "file", filename, "error", err)
				return err
			}
			logger.Info("config file not found, using environment only", "file", filename)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		logger.Error("failed to parse environment overrides", "error", err)
		return fmt.Errorf("parse env: %w", err)
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

func decodeFile(filename string, cfg *Config) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	return decoder.Decode(cfg)
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Database.Driver) == "" {
		c.Database.Driver = DriverPostgres
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == DriverSQLite && strings.TrimSpace(c.Database.Path) == "" {
		c.Database.Path = defaultSQLitePath
	}
	if c.Database.Driver == DriverPostgres {
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		c.HTTP.Addr = defaultHTTPAddr
	}
	if c.Push.TTLSeconds <= 0 {
		c.Push.TTLSeconds = defaultPushTTLSeconds
	}
	if c.Push.TimeoutSeconds <= 0 {
		c.Push.TimeoutSeconds = defaultPushTimeoutSecond
	}
	if c.Sweep.IntervalSeconds <= 0 {
		c.Sweep.IntervalSeconds = defaultSweepInterval
	}
	if c.Retention.CompletedReminderDays == 0 {
		c.Retention.CompletedReminderDays = defaultRetentionDays
	}
	return c
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if strings.TrimSpace(c.Database.Host) == "" || strings.TrimSpace(c.Database.DBName) == "" {
			return fmt.Errorf("database host and dbname are required for postgres")
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Push.Enabled() && strings.TrimSpace(c.Push.Subscriber) == "" {
		return fmt.Errorf("push subscriber contact is required when VAPID keys are set")
	}
	return nil
}
