// Package config loads and persists the plugin configuration: platform
// accounts, the delivery log sink and retention, and logging.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AllWayChat/chat-plugin/pkg/allway"
	"github.com/AllWayChat/chat-plugin/pkg/logsink"
)

// Defaults for the delivery log.
const (
	DefaultRetentionDays = 7
	DefaultPurgeSchedule = "0 3 * * *"
)

// Config is the whole plugin configuration.
type Config struct {
	Accounts    []AccountConfig   `json:"accounts"`
	DeliveryLog DeliveryLogConfig `json:"delivery_log"`
	LogLevel    string            `json:"log_level"`
}

// AccountConfig is one platform account entry.
type AccountConfig struct {
	Name      string `json:"name"`
	ServerURL string `json:"server_url"`
	Token     string `json:"token"`
	AccountID int64  `json:"account_id"`
	Active    bool   `json:"is_active"`
}

// Account converts the entry into the client's account context.
func (a AccountConfig) Account() *allway.Account {
	return &allway.Account{
		Name:      a.Name,
		ServerURL: a.ServerURL,
		Token:     a.Token,
		AccountID: allway.AccountID(a.AccountID),
		Active:    a.Active,
	}
}

// DeliveryLogConfig configures the delivery log sink and its retention.
type DeliveryLogConfig struct {
	Sink          logsink.Config `json:"sink"`
	RetentionDays int            `json:"retention_days"`
	PurgeSchedule string         `json:"purge_schedule"`
}

// DefaultConfigPath is where the configuration lives unless overridden.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".allwaychat", "config.json")
}

// DefaultConfig returns a fresh configuration with a file sink next to the
// config file.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	sink := logsink.DefaultConfig("file")
	sink.FilePath = filepath.Join(home, ".allwaychat", "delivery.jsonl")

	return &Config{
		DeliveryLog: DeliveryLogConfig{
			Sink:          sink,
			RetentionDays: DefaultRetentionDays,
			PurgeSchedule: DefaultPurgeSchedule,
		},
		LogLevel: "info",
	}
}

// LoadConfig reads the configuration, creating and persisting a default one
// when the file does not exist yet. Environment overrides are applied after
// loading; when they change anything the result is persisted back.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		if err := SaveConfig(path, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if applyEnvOverrides(cfg) {
		if err := SaveConfig(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.normalize()
	return cfg, nil
}

// SaveConfig writes the configuration with restrictive permissions; it holds
// API tokens.
func SaveConfig(path string, cfg *Config) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// AccountByName finds an account entry by name.
func (c *Config) AccountByName(name string) (*allway.Account, error) {
	for _, a := range c.Accounts {
		if a.Name == name {
			return a.Account(), nil
		}
	}
	return nil, fmt.Errorf("no account named %q", name)
}

// FirstActiveAccount returns the first active account entry.
func (c *Config) FirstActiveAccount() (*allway.Account, error) {
	for _, a := range c.Accounts {
		if a.Active {
			return a.Account(), nil
		}
	}
	return nil, errors.New("no active account configured")
}

func (c *Config) normalize() {
	if c.DeliveryLog.RetentionDays <= 0 {
		c.DeliveryLog.RetentionDays = DefaultRetentionDays
	}
	if c.DeliveryLog.PurgeSchedule == "" {
		c.DeliveryLog.PurgeSchedule = DefaultPurgeSchedule
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DeliveryLog.Sink.Type == "" {
		c.DeliveryLog.Sink = DefaultConfig().DeliveryLog.Sink
	}
}
