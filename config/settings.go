package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	// SettingsPathEnv names the env var holding the YAML overlay path.
	SettingsPathEnv = "ALERTDASH_CONFIG"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Variables already set are left untouched and missing files are
// skipped.
func LoadDotEnv(logger *zap.Logger, paths ...string) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			logger.Warn("failed to load env file", zap.String("path", p), zap.Error(err))
			continue
		}
		logger.Info("loaded env file", zap.String("path", p))
	}
}

// ConfigFromYAML overlays a YAML document onto base. Keys absent from the
// document keep their base value.
func ConfigFromYAML(data []byte, base *Config) (*Config, error) {
	if base == nil {
		base = Defaults()
	}
	result := base.Clone()
	if err := yaml.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("parse settings yaml: %w", err)
	}
	return result, nil
}

// SettingsManager loads the optional YAML settings file and applies reloads
// to the live config.
type SettingsManager struct {
	logger     *zap.Logger
	path       string
	liveConfig *LiveConfig

	loadedAt time.Time
	source   string
}

// NewSettingsManager creates a new SettingsManager. An empty path disables the file layer.
func NewSettingsManager(logger *zap.Logger, path string, liveConfig *LiveConfig) *SettingsManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsManager{
		logger:     logger,
		path:       path,
		liveConfig: liveConfig,
		source:     "env",
	}
}

// IsEnabled returns true if a settings file is configured.
func (sm *SettingsManager) IsEnabled() bool {
	return sm.path != ""
}

// LoadSettings merges the settings file on top of envConfig.
// Priority: settings file > environment variables > defaults
func (sm *SettingsManager) LoadSettings(envConfig *Config) (*Config, error) {
	base := envConfig
	if base == nil {
		base = Defaults()
	}

	if !sm.IsEnabled() {
		sm.logger.Info("settings file not configured, using env/defaults")
		sm.source = "env"
		return base.Clone(), nil
	}

	data, err := os.ReadFile(sm.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			sm.logger.Warn("settings file not found, using env/defaults", zap.String("path", sm.path))
			sm.source = "env"
			return base.Clone(), nil
		}
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	cfg, err := ConfigFromYAML(data, base)
	if err != nil {
		return nil, err
	}

	sm.source = "file"
	sm.loadedAt = time.Now()
	sm.logger.Info("loaded settings file", zap.String("path", sm.path))
	return cfg, nil
}

// Reload re-reads the environment and the settings file and pushes the result
// into the live config. The running config is left as is when the new one is
// invalid.
func (sm *SettingsManager) Reload() error {
	cfg, err := sm.LoadSettings(Load())
	if err != nil {
		return err
	}
	if err := sm.liveConfig.Update(cfg); err != nil {
		return fmt.Errorf("update config: %w", err)
	}
	sm.logger.Info("settings reloaded", zap.Int("revision", sm.liveConfig.Revision()))
	return nil
}

// GetLiveConfig returns the LiveConfig for observers to register.
func (sm *SettingsManager) GetLiveConfig() *LiveConfig {
	return sm.liveConfig
}

// SettingsInfo provides metadata about the current settings state.
type SettingsInfo struct {
	Source      string    `json:"source"` // "file" or "env"
	Path        string    `json:"path,omitempty"`
	Revision    int       `json:"revision"`
	LastUpdated time.Time `json:"last_updated"`
	IsValid     bool      `json:"is_valid"`
	Errors      []string  `json:"errors,omitempty"`
}

// GetSettingsInfo returns metadata about the current settings.
func (sm *SettingsManager) GetSettingsInfo() SettingsInfo {
	cfg := sm.liveConfig.Get()
	validation := cfg.Validate()

	info := SettingsInfo{
		Source:      sm.source,
		Path:        sm.path,
		Revision:    sm.liveConfig.Revision(),
		LastUpdated: sm.liveConfig.LastUpdated(),
		IsValid:     validation.Valid,
	}
	for _, e := range validation.Errors {
		info.Errors = append(info.Errors, e.Field+": "+e.Message)
	}
	return info
}
