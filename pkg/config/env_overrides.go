package config

import (
	"os"
	"strconv"
	"strings"
)

// applyEnvOverrides applies selected runtime environment variables into the
// config. It returns true when any value changed so callers can persist the
// updated config.
func applyEnvOverrides(cfg *Config) bool {
	if cfg == nil {
		return false
	}

	changed := false

	setString := func(dst *string, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		if *dst != value {
			*dst = value
			changed = true
		}
	}
	setInt := func(dst *int, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return
		}
		if *dst != parsed {
			*dst = parsed
			changed = true
		}
	}

	setString(&cfg.LogLevel, os.Getenv("ALLWAY_LOG_LEVEL"))
	setString(&cfg.DeliveryLog.Sink.Type, os.Getenv("ALLWAY_SINK_TYPE"))
	setString(&cfg.DeliveryLog.Sink.DatabaseURL, os.Getenv("ALLWAY_SINK_DATABASE_URL"))
	setString(&cfg.DeliveryLog.Sink.DatabasePath, os.Getenv("ALLWAY_SINK_DATABASE_PATH"))
	setString(&cfg.DeliveryLog.Sink.FilePath, os.Getenv("ALLWAY_SINK_FILE_PATH"))
	setInt(&cfg.DeliveryLog.RetentionDays, os.Getenv("ALLWAY_LOG_RETENTION_DAYS"))
	setString(&cfg.DeliveryLog.PurgeSchedule, os.Getenv("ALLWAY_LOG_PURGE_SCHEDULE"))

	// A fully env-provided account is appended when none with that name
	// exists yet, for containerized deployments with no config file.
	serverURL := strings.TrimSpace(os.Getenv("ALLWAY_SERVER_URL"))
	token := strings.TrimSpace(os.Getenv("ALLWAY_TOKEN"))
	accountID, _ := strconv.ParseInt(strings.TrimSpace(os.Getenv("ALLWAY_ACCOUNT_ID")), 10, 64)
	if serverURL != "" && token != "" && accountID > 0 {
		name := strings.TrimSpace(os.Getenv("ALLWAY_ACCOUNT_NAME"))
		if name == "" {
			name = "default"
		}
		found := false
		for i := range cfg.Accounts {
			if cfg.Accounts[i].Name == name {
				found = true
				setString(&cfg.Accounts[i].ServerURL, serverURL)
				setString(&cfg.Accounts[i].Token, token)
				if cfg.Accounts[i].AccountID != accountID {
					cfg.Accounts[i].AccountID = accountID
					changed = true
				}
				break
			}
		}
		if !found {
			cfg.Accounts = append(cfg.Accounts, AccountConfig{
				Name:      name,
				ServerURL: serverURL,
				Token:     token,
				AccountID: accountID,
				Active:    true,
			})
			changed = true
		}
	}

	return changed
}
