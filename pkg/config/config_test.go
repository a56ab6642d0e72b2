package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DeliveryLog.RetentionDays != DefaultRetentionDays {
		t.Errorf("retention = %d, want %d", cfg.DeliveryLog.RetentionDays, DefaultRetentionDays)
	}
	if cfg.DeliveryLog.PurgeSchedule != DefaultPurgeSchedule {
		t.Errorf("schedule = %q, want %q", cfg.DeliveryLog.PurgeSchedule, DefaultPurgeSchedule)
	}
	if cfg.DeliveryLog.Sink.Type != "file" {
		t.Errorf("sink type = %q, want file", cfg.DeliveryLog.Sink.Type)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config was not persisted: %v", err)
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Accounts = append(cfg.Accounts, AccountConfig{
		Name:      "prod",
		ServerURL: "https://chat.example.com",
		Token:     "secret",
		AccountID: 7,
		Active:    true,
	})
	cfg.LogLevel = "debug"
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.LogLevel != "debug" {
		t.Errorf("log level = %q", loaded.LogLevel)
	}

	acc, err := loaded.AccountByName("prod")
	if err != nil {
		t.Fatalf("AccountByName: %v", err)
	}
	if acc.ServerURL != "https://chat.example.com" || acc.AccountID != 7 {
		t.Fatalf("account = %+v", acc)
	}

	active, err := loaded.FirstActiveAccount()
	if err != nil {
		t.Fatalf("FirstActiveAccount: %v", err)
	}
	if active.Name != "prod" {
		t.Fatalf("active account = %+v", active)
	}
}

func TestEnvOverridesAddAccount(t *testing.T) {
	t.Setenv("ALLWAY_SERVER_URL", "https://env.example.com")
	t.Setenv("ALLWAY_TOKEN", "env-token")
	t.Setenv("ALLWAY_ACCOUNT_ID", "12")
	t.Setenv("ALLWAY_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	if !applyEnvOverrides(cfg) {
		t.Fatal("applyEnvOverrides reported no change")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if len(cfg.Accounts) != 1 {
		t.Fatalf("accounts = %+v", cfg.Accounts)
	}
	a := cfg.Accounts[0]
	if a.Name != "default" || a.ServerURL != "https://env.example.com" || a.AccountID != 12 || !a.Active {
		t.Fatalf("account = %+v", a)
	}

	// Idempotent on a second pass.
	if applyEnvOverrides(cfg) {
		t.Fatal("second applyEnvOverrides reported a change")
	}
}

func TestFirstActiveAccountEmpty(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := cfg.FirstActiveAccount(); err == nil {
		t.Fatal("expected error with no accounts")
	}
}
