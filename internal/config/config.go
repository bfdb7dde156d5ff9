// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultStorageQuota is the durable store quota in bytes.
const DefaultStorageQuota = 10 << 20

// Config holds the application configuration.
type Config struct {
	FeedURL           string
	DatabasePath      string
	SettingsPath      string
	PollInterval      time.Duration
	APIURL            string
	Country           string
	StorageQuotaBytes int64
	LogLevel          string

	TelegramBotToken string
	TelegramChatID   int64
	AllowedUsers     []int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	feedURL := os.Getenv("FEED_URL")
	if feedURL == "" {
		return nil, fmt.Errorf("FEED_URL is required")
	}

	cfg := &Config{
		FeedURL:           feedURL,
		DatabasePath:      envOrDefault("DATABASE_PATH", "./data/monitor.db"),
		SettingsPath:      envOrDefault("SETTINGS_PATH", "./settings.toml"),
		PollInterval:      time.Minute,
		APIURL:            os.Getenv("API_URL"),
		Country:           envOrDefault("COUNTRY", "com"),
		StorageQuotaBytes: DefaultStorageQuota,
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if raw := os.Getenv("POLL_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid POLL_INTERVAL %q", raw)
		}
		cfg.PollInterval = d
	}

	if raw := os.Getenv("STORAGE_QUOTA_BYTES"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid STORAGE_QUOTA_BYTES %q: %w", raw, err)
		}
		cfg.StorageQuotaBytes = n
	}

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
		cfg.TelegramChatID = id
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			cfg.AllowedUsers = append(cfg.AllowedUsers, uid)
		}
	}

	return cfg, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// RemoteEnabled reports whether a remote sync endpoint is configured.
func (c *Config) RemoteEnabled() bool {
	return c.APIURL != ""
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
