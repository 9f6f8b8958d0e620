package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv string
	Port   string

	TwitchClientID   string
	ExtensionSecret  string
	ExtensionOwnerID string
	ChannelID        string

	DevToken string

	ThrottleInterval time.Duration
	TrialCooldown    time.Duration
	RoleBypassPolicy string
	AllowedOrigins   []string

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		TwitchClientID:   getEnv("TWITCH_CLIENT_ID", ""),
		ExtensionSecret:  getEnv("EXTENSION_SECRET", ""),
		ExtensionOwnerID: getEnv("EXTENSION_OWNER_ID", ""),
		ChannelID:        getEnv("CHANNEL_ID", ""),
		DevToken:         getEnv("DEV_TOKEN", ""),
		RoleBypassPolicy: getEnv("ROLE_BYPASS_POLICY", "broadcaster_only"),
		AllowedOrigins:   splitCommaList(getEnv("ALLOWED_ORIGINS", "")),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}

	throttleMs, err := getEnvInt("THROTTLE_INTERVAL_MS", 50)
	if err != nil {
		return nil, err
	}
	if throttleMs < 1 || throttleMs > 1000 {
		return nil, fmt.Errorf("THROTTLE_INTERVAL_MS must be between 1 and 1000, got %d", throttleMs)
	}
	cfg.ThrottleInterval = time.Duration(throttleMs) * time.Millisecond

	cooldownSec, err := getEnvInt("TRIAL_COOLDOWN_SECONDS", 300)
	if err != nil {
		return nil, err
	}
	if cooldownSec < 0 {
		return nil, fmt.Errorf("TRIAL_COOLDOWN_SECONDS must not be negative, got %d", cooldownSec)
	}
	cfg.TrialCooldown = time.Duration(cooldownSec) * time.Second

	if cfg.ExtensionSecret != "" {
		if _, err := base64.StdEncoding.DecodeString(cfg.ExtensionSecret); err != nil {
			return nil, fmt.Errorf("EXTENSION_SECRET must be valid base64: %w", err)
		}
	}

	// Production has no dev-token escape hatch: real extension credentials
	// are the only way in.
	if cfg.IsProduction() {
		if cfg.ExtensionSecret == "" {
			return nil, fmt.Errorf("EXTENSION_SECRET is required in production")
		}
		if cfg.TwitchClientID == "" {
			return nil, fmt.Errorf("TWITCH_CLIENT_ID is required in production")
		}
		if cfg.DevToken != "" {
			return nil, fmt.Errorf("DEV_TOKEN must not be set in production")
		}
	}

	// PubSub broadcast credentials come as a set or not at all.
	if cfg.ExtensionOwnerID != "" || cfg.ChannelID != "" {
		if cfg.ExtensionOwnerID == "" {
			return nil, fmt.Errorf("EXTENSION_OWNER_ID is required when CHANNEL_ID is set")
		}
		if cfg.ChannelID == "" {
			return nil, fmt.Errorf("CHANNEL_ID is required when EXTENSION_OWNER_ID is set")
		}
		if cfg.ExtensionSecret == "" {
			return nil, fmt.Errorf("EXTENSION_SECRET is required for PubSub broadcasting")
		}
		if cfg.TwitchClientID == "" {
			return nil, fmt.Errorf("TWITCH_CLIENT_ID is required for PubSub broadcasting")
		}
	}

	if cfg.RoleBypassPolicy != "broadcaster_only" && cfg.RoleBypassPolicy != "any_non_viewer" {
		return nil, fmt.Errorf("ROLE_BYPASS_POLICY must be broadcaster_only or any_non_viewer, got %q", cfg.RoleBypassPolicy)
	}

	return cfg, nil
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// PubSubEnabled reports whether broadcast credentials are configured.
func (c *Config) PubSubEnabled() bool {
	return c.ExtensionOwnerID != "" && c.ChannelID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitCommaList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}
