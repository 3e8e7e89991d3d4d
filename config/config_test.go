package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnvVars = []string{
	"STAGE", "ALERTS_BACKEND_URL", "ALERTS_REQUEST_TIMEOUT", "ALERTS_CLEAR_METHOD",
	"ALERTS_POLL_INTERVAL", "STATUS_POLL_INTERVAL",
	"DASHBOARD_ENABLED", "DASHBOARD_PORT", "DASHBOARD_TIMEZONE", "DASHBOARD_DEFAULT_FILTER",
	"DISCORD_BOT_TOKEN", "DISCORD_PROD_CHANNEL_ID", "DISCORD_BETA_CHANNEL_ID",
	"TELEGRAM_BOT_KEY", "TELEGRAM_PROD_CHAT_ID", "TELEGRAM_BETA_CHAT_ID",
}

func clearConfigEnv() {
	for _, v := range configEnvVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv()

	cfg := Load()

	if cfg.IsProd {
		t.Error("expected IsProd to be false by default")
	}
	if cfg.Backend.BaseURL != "http://localhost:5000" {
		t.Errorf("unexpected base url: %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.RequestTimeout != 10*time.Second {
		t.Errorf("unexpected request timeout: %v", cfg.Backend.RequestTimeout)
	}
	if cfg.Backend.ClearMethod != "post" {
		t.Errorf("unexpected clear method: %s", cfg.Backend.ClearMethod)
	}
	if cfg.Polling.AlertsInterval != 5*time.Second {
		t.Errorf("unexpected alerts interval: %v", cfg.Polling.AlertsInterval)
	}
	if cfg.Polling.StatusInterval != 15*time.Second {
		t.Errorf("unexpected status interval: %v", cfg.Polling.StatusInterval)
	}
	if !cfg.Dashboard.Enabled {
		t.Error("expected dashboard enabled by default")
	}
	if cfg.Dashboard.Port != 8080 {
		t.Errorf("unexpected port: %d", cfg.Dashboard.Port)
	}
	if cfg.Dashboard.DefaultFilter != "all" {
		t.Errorf("unexpected default filter: %s", cfg.Dashboard.DefaultFilter)
	}
	if cfg.Discord.BotToken != "" || cfg.Telegram.BotToken != "" {
		t.Error("expected empty bot tokens by default")
	}

	if !cfg.Validate().Valid {
		t.Errorf("expected defaults to validate, got %+v", cfg.Validate().Errors)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearConfigEnv()
	os.Setenv("STAGE", "prod")
	os.Setenv("ALERTS_BACKEND_URL", "http://scanner:5000")
	os.Setenv("ALERTS_CLEAR_METHOD", "DELETE")
	os.Setenv("ALERTS_POLL_INTERVAL", "2s")
	os.Setenv("STATUS_POLL_INTERVAL", "1m")
	os.Setenv("DASHBOARD_ENABLED", "no")
	os.Setenv("DASHBOARD_PORT", "9090")
	os.Setenv("DASHBOARD_DEFAULT_FILTER", "sell")
	os.Setenv("DISCORD_BOT_TOKEN", "test-token")
	os.Setenv("TELEGRAM_PROD_CHAT_ID", "-100123")
	defer clearConfigEnv()

	cfg := Load()

	if !cfg.IsProd {
		t.Error("expected IsProd to be true")
	}
	if cfg.Backend.BaseURL != "http://scanner:5000" {
		t.Errorf("unexpected base url: %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.ClearMethod != "delete" {
		t.Errorf("expected lowercased clear method, got %s", cfg.Backend.ClearMethod)
	}
	if cfg.Polling.AlertsInterval != 2*time.Second {
		t.Errorf("unexpected alerts interval: %v", cfg.Polling.AlertsInterval)
	}
	if cfg.Polling.StatusInterval != time.Minute {
		t.Errorf("unexpected status interval: %v", cfg.Polling.StatusInterval)
	}
	if cfg.Dashboard.Enabled {
		t.Error("expected dashboard disabled")
	}
	if cfg.Dashboard.Port != 9090 {
		t.Errorf("unexpected port: %d", cfg.Dashboard.Port)
	}
	if cfg.Dashboard.DefaultFilter != "sell" {
		t.Errorf("unexpected default filter: %s", cfg.Dashboard.DefaultFilter)
	}
	if cfg.Discord.BotToken != "test-token" {
		t.Errorf("unexpected bot token: %s", cfg.Discord.BotToken)
	}
	if cfg.Telegram.ProdChatID != "-100123" {
		t.Errorf("unexpected chat id: %s", cfg.Telegram.ProdChatID)
	}
}

func TestEnvString(t *testing.T) {
	os.Setenv("TEST_STRING", "  trimmed  ")
	defer os.Unsetenv("TEST_STRING")

	if v := envString("TEST_STRING", "default"); v != "trimmed" {
		t.Errorf("expected 'trimmed', got '%s'", v)
	}
	if v := envString("NONEXISTENT", "default"); v != "default" {
		t.Errorf("expected 'default', got '%s'", v)
	}
}

func TestEnvInt(t *testing.T) {
	os.Setenv("TEST_INT", "42")
	os.Setenv("TEST_INVALID_INT", "not-a-number")
	defer os.Unsetenv("TEST_INT")
	defer os.Unsetenv("TEST_INVALID_INT")

	if v := envInt("TEST_INT", 0); v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
	if v := envInt("TEST_INVALID_INT", 50); v != 50 {
		t.Errorf("expected 50 for invalid int, got %d", v)
	}
}

func TestEnvDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "5m30s")
	os.Setenv("TEST_INVALID_DURATION", "soon")
	defer os.Unsetenv("TEST_DURATION")
	defer os.Unsetenv("TEST_INVALID_DURATION")

	if v := envDuration("TEST_DURATION", 0); v != 5*time.Minute+30*time.Second {
		t.Errorf("unexpected duration: %v", v)
	}
	if v := envDuration("TEST_INVALID_DURATION", time.Minute); v != time.Minute {
		t.Errorf("expected 1m for invalid duration, got %v", v)
	}
}

func TestEnvBoolDefault(t *testing.T) {
	tests := []struct {
		value    string
		def      bool
		expected bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"YES", false, true},
		{"1", false, true},
		{"false", true, false},
		{"off", true, false},
	}
	for _, tt := range tests {
		os.Setenv("TEST_BOOL_DEFAULT", tt.value)
		if v := envBoolDefault("TEST_BOOL_DEFAULT", tt.def); v != tt.expected {
			t.Errorf("envBoolDefault(%q, %v) = %v", tt.value, tt.def, v)
		}
	}
	os.Unsetenv("TEST_BOOL_DEFAULT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative base url", func(c *Config) { c.Backend.BaseURL = "/api" }, "backend.base_url"},
		{"tiny timeout", func(c *Config) { c.Backend.RequestTimeout = time.Millisecond }, "backend.request_timeout"},
		{"clear method", func(c *Config) { c.Backend.ClearMethod = "put" }, "backend.clear_method"},
		{"alerts interval", func(c *Config) { c.Polling.AlertsInterval = 500 * time.Millisecond }, "polling.alerts_interval"},
		{"status interval", func(c *Config) { c.Polling.StatusInterval = 0 }, "polling.status_interval"},
		{"port", func(c *Config) { c.Dashboard.Port = 70000 }, "dashboard.port"},
		{"timezone", func(c *Config) { c.Dashboard.Timezone = "Mars/Olympus" }, "dashboard.timezone"},
		{"filter", func(c *Config) { c.Dashboard.DefaultFilter = "unknown" }, "dashboard.default_filter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			result := cfg.Validate()
			if result.Valid {
				t.Fatal("expected invalid config")
			}
			if result.Errors[0].Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, result.Errors[0].Field)
			}
		})
	}
}

type recordingObserver struct {
	updates []*Config
}

func (r *recordingObserver) OnConfigUpdate(cfg *Config) {
	r.updates = append(r.updates, cfg)
}

func TestLiveConfig_Update(t *testing.T) {
	lc := NewLiveConfig(Defaults())
	obs := &recordingObserver{}
	lc.AddObserver(obs)

	err := lc.UpdatePartial(func(c *Config) { c.Polling.AlertsInterval = 2 * time.Second })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lc.Get().Polling.AlertsInterval != 2*time.Second {
		t.Errorf("update not applied: %v", lc.Get().Polling.AlertsInterval)
	}
	if len(obs.updates) != 1 {
		t.Fatalf("expected 1 observer call, got %d", len(obs.updates))
	}
	if lc.Revision() != 2 {
		t.Errorf("expected revision 2, got %d", lc.Revision())
	}

	err = lc.UpdatePartial(func(c *Config) { c.Dashboard.Port = 0 })
	var verr *ConfigValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ConfigValidationError, got %v", err)
	}
	if lc.Get().Dashboard.Port != 8080 {
		t.Error("invalid update must not be applied")
	}
	if len(obs.updates) != 1 {
		t.Error("observers must not run for rejected updates")
	}
}

func TestLiveConfig_GetReturnsCopy(t *testing.T) {
	lc := NewLiveConfig(nil)
	cfg := lc.Get()
	cfg.Dashboard.Port = 1
	if lc.Get().Dashboard.Port != 8080 {
		t.Error("mutating a copy changed the live config")
	}
}

func TestConfigFromYAML(t *testing.T) {
	base := Defaults()
	base.Discord.BotToken = "secret"

	data := []byte(`
backend:
  base_url: http://scanner:5000
polling:
  alerts_interval: 3s
dashboard:
  default_filter: prime
`)
	cfg, err := ConfigFromYAML(data, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "http://scanner:5000" {
		t.Errorf("unexpected base url: %s", cfg.Backend.BaseURL)
	}
	if cfg.Polling.AlertsInterval != 3*time.Second {
		t.Errorf("unexpected alerts interval: %v", cfg.Polling.AlertsInterval)
	}
	if cfg.Polling.StatusInterval != 15*time.Second {
		t.Errorf("absent key should keep base value, got %v", cfg.Polling.StatusInterval)
	}
	if cfg.Dashboard.DefaultFilter != "prime" {
		t.Errorf("unexpected filter: %s", cfg.Dashboard.DefaultFilter)
	}
	if cfg.Discord.BotToken != "secret" {
		t.Error("bot token must survive the overlay")
	}

	if _, err := ConfigFromYAML([]byte("polling: [1, 2"), base); err == nil {
		t.Error("expected error for broken yaml")
	}
}

func TestSettingsManager_LoadAndReload(t *testing.T) {
	clearConfigEnv()

	dir := t.TempDir()
	path := filepath.Join(dir, "alertdash.yaml")
	if err := os.WriteFile(path, []byte("polling:\n  alerts_interval: 4s\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	lc := NewLiveConfig(Defaults())
	sm := NewSettingsManager(nil, path, lc)

	cfg, err := sm.LoadSettings(Load())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Polling.AlertsInterval != 4*time.Second {
		t.Errorf("file value not applied: %v", cfg.Polling.AlertsInterval)
	}
	if sm.GetSettingsInfo().Source != "file" {
		t.Errorf("unexpected source: %s", sm.GetSettingsInfo().Source)
	}

	obs := &recordingObserver{}
	lc.AddObserver(obs)

	if err := os.WriteFile(path, []byte("polling:\n  alerts_interval: 7s\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := sm.Reload(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if lc.Get().Polling.AlertsInterval != 7*time.Second {
		t.Errorf("reload not applied: %v", lc.Get().Polling.AlertsInterval)
	}
	if len(obs.updates) != 1 {
		t.Errorf("expected observer call on reload, got %d", len(obs.updates))
	}

	if err := os.WriteFile(path, []byte("dashboard:\n  port: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := sm.Reload(); err == nil {
		t.Error("expected reload of invalid settings to fail")
	}
	if lc.Get().Dashboard.Port != 8080 {
		t.Error("invalid reload must leave the running config alone")
	}
}

func TestSettingsManager_MissingFile(t *testing.T) {
	sm := NewSettingsManager(nil, filepath.Join(t.TempDir(), "missing.yaml"), NewLiveConfig(nil))
	cfg, err := sm.LoadSettings(Defaults())
	if err != nil {
		t.Fatalf("missing file should fall back, got %v", err)
	}
	if cfg.Dashboard.Port != 8080 {
		t.Errorf("unexpected port: %d", cfg.Dashboard.Port)
	}

	disabled := NewSettingsManager(nil, "", NewLiveConfig(nil))
	if disabled.IsEnabled() {
		t.Error("expected settings file layer disabled")
	}
}

func TestLoadDotEnv(t *testing.T) {
	os.Unsetenv("ALERTDASH_TEST_DOTENV")
	defer os.Unsetenv("ALERTDASH_TEST_DOTENV")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ALERTDASH_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	LoadDotEnv(nil, path, filepath.Join(t.TempDir(), "absent.env"))
	if v := os.Getenv("ALERTDASH_TEST_DOTENV"); v != "from-file" {
		t.Errorf("expected value from env file, got %q", v)
	}

	os.Setenv("ALERTDASH_TEST_DOTENV", "from-process")
	LoadDotEnv(nil, path)
	if v := os.Getenv("ALERTDASH_TEST_DOTENV"); v != "from-process" {
		t.Errorf("existing variables must win, got %q", v)
	}
}
