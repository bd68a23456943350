package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config fixture: %v", err)
	}
	return configPath
}

func restoreAppConfig(t *testing.T) {
	t.Helper()
	original := AppConfig
	t.Cleanup(func() {
		AppConfig = original
	})
}

func TestLoadConfigSuccess(t *testing.T) {
	restoreAppConfig(t)

	configPath := writeConfig(t, `{
		"database": {
			"host": "localhost",
			"user": "test-user",
			"password": "test-pass",
			"dbname": "testdb",
			"port": 5433,
			"sslmode": "disable"
		},
		"push": {
			"vapid_public_key": "pub",
			"vapid_private_key": "priv",
			"subscriber": "ops@example.com"
		},
		"telegram": {
			"token": "test-token"
		},
		"logging": {
			"level": "debug"
		}
	}`)

	if err := LoadConfig(configPath); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if AppConfig.Database.Driver != DriverPostgres {
		t.Errorf("expected default driver postgres, got %q", AppConfig.Database.Driver)
	}
	if AppConfig.Database.Port != 5433 {
		t.Errorf("expected port to be 5433, got %d", AppConfig.Database.Port)
	}
	if AppConfig.Telegram.Token != "test-token" {
		t.Errorf("expected token to be test-token, got %q", AppConfig.Telegram.Token)
	}
	if !AppConfig.Push.Enabled() {
		t.Errorf("expected push to be enabled")
	}
	if AppConfig.Push.TTLSeconds != defaultPushTTLSeconds {
		t.Errorf("expected default push ttl, got %d", AppConfig.Push.TTLSeconds)
	}
	if AppConfig.Sweep.IntervalSeconds != defaultSweepInterval {
		t.Errorf("expected default sweep interval, got %d", AppConfig.Sweep.IntervalSeconds)
	}
	if AppConfig.HTTP.Addr != defaultHTTPAddr {
		t.Errorf("expected default http addr, got %q", AppConfig.HTTP.Addr)
	}
	if AppConfig.Retention.CompletedReminderDays != defaultRetentionDays {
		t.Errorf("expected default retention, got %d", AppConfig.Retention.CompletedReminderDays)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	restoreAppConfig(t)

	configPath := writeConfig(t, `{
		"database": {"driver": "sqlite", "path": "from-file.db"},
		"http": {"addr": ":9000"}
	}`)
	t.Setenv("FOCUSDESK_DATABASE_PATH", "/tmp/from-env.db")
	t.Setenv("FOCUSDESK_SWEEP_INTERVAL_SECONDS", "15")

	if err := LoadConfig(configPath); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if AppConfig.Database.Path != "/tmp/from-env.db" {
		t.Errorf("expected env to override sqlite path, got %q", AppConfig.Database.Path)
	}
	if AppConfig.HTTP.Addr != ":9000" {
		t.Errorf("expected file value to survive, got %q", AppConfig.HTTP.Addr)
	}
	if AppConfig.Sweep.IntervalSeconds != 15 {
		t.Errorf("expected sweep interval 15, got %d", AppConfig.Sweep.IntervalSeconds)
	}
}

func TestLoadConfigMissingFileUsesEnvironment(t *testing.T) {
	restoreAppConfig(t)

	t.Setenv("FOCUSDESK_DATABASE_DRIVER", "sqlite")
	if err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err != nil {
		t.Fatalf("expected missing file to be tolerated, got %v", err)
	}
	if AppConfig.Database.Path != defaultSQLitePath {
		t.Errorf("expected default sqlite path, got %q", AppConfig.Database.Path)
	}
}

func TestLoadConfigRejectsIncompletePostgres(t *testing.T) {
	restoreAppConfig(t)

	if err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error when postgres settings are missing")
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	restoreAppConfig(t)

	configPath := writeConfig(t, `{"database": `)
	if err := LoadConfig(configPath); err == nil {
		t.Fatal("expected an error for malformed config")
	}
}

func TestValidateRequiresSubscriberWithVAPIDKeys(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{Driver: DriverSQLite},
		Push:     PushConfig{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected subscriber to be required")
	}
}
