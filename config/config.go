package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Environment
	IsProd bool `json:"is_prod" yaml:"is_prod"`

	// Alert backend
	Backend BackendConfig `json:"backend" yaml:"backend"`

	// Polling cadence
	Polling PollingConfig `json:"polling" yaml:"polling"`

	// Dashboard view server
	Dashboard DashboardConfig `json:"dashboard" yaml:"dashboard"`

	// Discord
	Discord DiscordConfig `json:"discord" yaml:"discord"`

	// Telegram
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
}

// BackendConfig holds alert backend configuration.
type BackendConfig struct {
	BaseURL        string        `json:"base_url" yaml:"base_url"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
	ClearMethod    string        `json:"clear_method" yaml:"clear_method"` // "post" (/alerts/<id>/clear) or "delete" (/api/alerts/<id>)
}

// PollingConfig holds the two polling intervals.
type PollingConfig struct {
	AlertsInterval time.Duration `json:"alerts_interval" yaml:"alerts_interval"`
	StatusInterval time.Duration `json:"status_interval" yaml:"status_interval"`
}

// DashboardConfig holds view server configuration.
type DashboardConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	Port          int    `json:"port" yaml:"port"`
	Timezone      string `json:"timezone" yaml:"timezone"`
	DefaultFilter string `json:"default_filter" yaml:"default_filter"`
}

// DiscordConfig holds Discord-related configuration.
type DiscordConfig struct {
	BotToken      string `json:"-" yaml:"-"` // Excluded - env var only
	ProdChannelID string `json:"prod_channel_id" yaml:"prod_channel_id"`
	BetaChannelID string `json:"beta_channel_id" yaml:"beta_channel_id"`
}

// TelegramConfig holds Telegram-related configuration.
type TelegramConfig struct {
	BotToken   string `json:"-" yaml:"-"` // Excluded - env var only
	ProdChatID string `json:"prod_chat_id" yaml:"prod_chat_id"`
	BetaChatID string `json:"beta_chat_id" yaml:"beta_chat_id"`
}

// Location resolves the dashboard timezone, falling back to local time.
func (d DashboardConfig) Location() *time.Location {
	if d.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Clone creates a copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// ToJSON serializes the config to JSON.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		IsProd: false,
		Backend: BackendConfig{
			BaseURL:        "http://localhost:5000",
			RequestTimeout: 10 * time.Second,
			ClearMethod:    "post",
		},
		Polling: PollingConfig{
			AlertsInterval: 5 * time.Second,
			StatusInterval: 15 * time.Second,
		},
		Dashboard: DashboardConfig{
			Enabled:       true,
			Port:          8080,
			Timezone:      "America/New_York",
			DefaultFilter: "all",
		},
	}
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		IsProd: envBool("STAGE", "PROD"),

		Backend: BackendConfig{
			BaseURL:        envString("ALERTS_BACKEND_URL", "http://localhost:5000"),
			RequestTimeout: envDuration("ALERTS_REQUEST_TIMEOUT", 10*time.Second),
			ClearMethod:    strings.ToLower(envString("ALERTS_CLEAR_METHOD", "post")),
		},

		Polling: PollingConfig{
			AlertsInterval: envDuration("ALERTS_POLL_INTERVAL", 5*time.Second),
			StatusInterval: envDuration("STATUS_POLL_INTERVAL", 15*time.Second),
		},

		Dashboard: DashboardConfig{
			Enabled:       envBoolDefault("DASHBOARD_ENABLED", true),
			Port:          envInt("DASHBOARD_PORT", 8080),
			Timezone:      envString("DASHBOARD_TIMEZONE", "America/New_York"),
			DefaultFilter: envString("DASHBOARD_DEFAULT_FILTER", "all"),
		},

		Discord: DiscordConfig{
			BotToken:      envString("DISCORD_BOT_TOKEN", ""),
			ProdChannelID: envString("DISCORD_PROD_CHANNEL_ID", ""),
			BetaChannelID: envString("DISCORD_BETA_CHANNEL_ID", ""),
		},

		Telegram: TelegramConfig{
			BotToken:   envString("TELEGRAM_BOT_KEY", ""),
			ProdChatID: envString("TELEGRAM_PROD_CHAT_ID", ""),
			BetaChatID: envString("TELEGRAM_BETA_CHAT_ID", ""),
		},
	}
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBool(key, trueValue string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), trueValue)
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}
