package app

import (
	"alertdash/config"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SettingsHandler exposes the running configuration. Settings are edited in
// the YAML file; POST /api/settings/reload applies it without a restart.
type SettingsHandler struct {
	logger   *zap.Logger
	settings *config.SettingsManager
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(logger *zap.Logger, settings *config.SettingsManager) *SettingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsHandler{
		logger:   logger,
		settings: settings,
	}
}

// RegisterRoutes registers the settings routes on the given mux.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/settings", h.getSettings)
	mux.HandleFunc("GET /api/settings/info", h.getSettingsInfo)
	mux.HandleFunc("POST /api/settings/reload", h.reloadSettings)
}

// getSettings returns the current settings as JSON. Tokens are never encoded.
func (h *SettingsHandler) getSettings(w http.ResponseWriter, _ *http.Request) {
	cfg := h.settings.GetLiveConfig().Get()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cfg); err != nil {
		h.logger.Error("failed to encode settings", zap.Error(err))
		http.Error(w, "Failed to encode settings", http.StatusInternalServerError)
	}
}

func (h *SettingsHandler) getSettingsInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.settings.GetSettingsInfo())
}

// reloadSettings re-reads the settings file. An invalid file leaves the
// running config untouched and answers 400.
func (h *SettingsHandler) reloadSettings(w http.ResponseWriter, _ *http.Request) {
	if err := h.settings.Reload(); err != nil {
		h.logger.Warn("settings reload failed", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	h.logger.Info("settings reloaded via API")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":    true,
		"revision":   h.settings.GetLiveConfig().Revision(),
		"applied_at": time.Now(),
	})
}
