package app

import (
	clts "alertdash/clients"
	"alertdash/config"
	"alertdash/internal/alert"
	"alertdash/internal/metrics"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ensure Runner implements ConfigObserver
var _ config.ConfigObserver = (*Runner)(nil)

// Build info - populated from embedded VCS info at init time
var (
	BuildCommit = "dev"
	BuildTime   = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if setting.Value != "" {
					BuildCommit = setting.Value
				}
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	}
}

type Runner struct {
	clients         *clts.Clients
	liveConfig      *config.LiveConfig
	settingsManager *config.SettingsManager
	metrics         *metrics.Recorder

	mu         sync.RWMutex
	dashboard  *Dashboard
	scheduler  *Scheduler
	hub        *Hub
	dispatcher *Dispatcher
	viewServer *http.Server
	startTime  time.Time
}

// ServiceStats is served at /stats.
type ServiceStats struct {
	Build struct {
		Commit    string `json:"commit"`
		Time      string `json:"time,omitempty"`
		GoVersion string `json:"go_version"`
	} `json:"build"`

	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_seconds"`

	Scheduler SchedulerStats `json:"scheduler"`

	View struct {
		Filter      string `json:"filter"`
		Rows        int    `json:"rows"`
		Hidden      int    `json:"hidden"`
		Pending     int    `json:"pending"`
		Clients     int    `json:"clients"`
		LastAlertAt string `json:"last_alerts_at,omitempty"`
	} `json:"view"`

	ConfigRevision int `json:"config_revision"`

	Notifications struct {
		DiscordEnabled   bool   `json:"discord_enabled"`
		DiscordChannelID string `json:"discord_channel_id,omitempty"`
		TelegramEnabled  bool   `json:"telegram_enabled"`
		TelegramChatID   string `json:"telegram_chat_id,omitempty"`
	} `json:"notifications"`

	Runtime struct {
		Goroutines int    `json:"goroutines"`
		HeapAlloc  uint64 `json:"heap_alloc"`
		NumGC      uint32 `json:"num_gc"`
		GoVersion  string `json:"go_version"`
		NumCPU     int    `json:"num_cpu"`
	} `json:"runtime"`
}

func NewRunner(clients *clts.Clients, liveConfig *config.LiveConfig, settingsManager *config.SettingsManager, rec *metrics.Recorder) *Runner {
	return &Runner{
		clients:         clients,
		liveConfig:      liveConfig,
		settingsManager: settingsManager,
		metrics:         rec,
	}
}

// OnConfigUpdate is called when the config changes.
// Implements config.ConfigObserver interface.
func (r *Runner) OnConfigUpdate(cfg *config.Config) {
	r.clients.Logger.Info("config update received, propagating to components",
		zap.Duration("alertsInterval", cfg.Polling.AlertsInterval),
		zap.Duration("statusInterval", cfg.Polling.StatusInterval),
	)

	r.mu.RLock()
	scheduler := r.scheduler
	r.mu.RUnlock()

	if scheduler != nil {
		scheduler.OnConfigUpdate(cfg)
	}
}

// Run wires the dashboard and blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.startTime = time.Now()
	r.mu.Unlock()

	logger := r.clients.Logger
	cfg := r.liveConfig.Get()

	initial, err := alert.ParseFilter(cfg.Dashboard.DefaultFilter)
	if err != nil {
		return fmt.Errorf("default filter: %w", err)
	}

	loc := cfg.Dashboard.Location()
	feed := NewFeedClient(logger, r.clients.AlertAPI, r.metrics)
	feed.SetLocation(loc)
	dashboard := NewDashboard(logger, feed, NewBoard(), initial, RenderOptions{
		Location: loc,
	})

	hub := NewHub(logger, r.metrics)
	go hub.Run(ctx)
	dashboard.SetSink(hub)
	r.clients.Notifier.Add(hub)

	scheduler := NewScheduler(logger, dashboard, r.metrics, cfg.Polling.AlertsInterval, cfg.Polling.StatusInterval)
	dashboard.SetRefresher(scheduler)

	dispatcher := NewDispatcher(logger, r.clients.AlertAPI, dashboard, r.clients.Notifier, r.metrics)

	r.mu.Lock()
	r.dashboard = dashboard
	r.scheduler = scheduler
	r.hub = hub
	r.dispatcher = dispatcher
	r.mu.Unlock()

	// Register as config observer for hot-reload
	r.liveConfig.AddObserver(r)

	if cfg.Dashboard.Enabled {
		r.startViewServer(cfg.Dashboard.Port)
		logger.Info("view server started", zap.Int("port", cfg.Dashboard.Port))
	}

	if r.settingsManager != nil && r.settingsManager.IsEnabled() {
		go r.reloadOnSignal(ctx)
	}

	scheduler.Start(ctx)
	logger.Info("polling started",
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("filter", string(initial)),
		zap.Duration("alertsInterval", cfg.Polling.AlertsInterval),
		zap.Duration("statusInterval", cfg.Polling.StatusInterval),
	)

	<-ctx.Done()
	logger.Info("runner shutting down")

	scheduler.Stop()

	if r.viewServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = r.viewServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	if err := r.clients.Notifier.Close(); err != nil {
		logger.Warn("failed to close notifiers", zap.Error(err))
	}

	return nil
}

func (r *Runner) startViewServer(port int) {
	vs := NewViewServer(r.clients.Logger, r.dashboard, r.dispatcher, r.hub, r.metrics).
		WithStats(func() any { return r.GetStats() })
	if r.settingsManager != nil {
		vs.WithSettings(NewSettingsHandler(r.clients.Logger, r.settingsManager))
	}

	r.viewServer = vs.NewHTTPServer(port)

	go func() {
		if err := r.viewServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.clients.Logger.Error("view server error", zap.Error(err))
		}
	}()
}

// reloadOnSignal re-reads the settings file on SIGHUP.
func (r *Runner) reloadOnSignal(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := r.settingsManager.Reload(); err != nil {
				r.clients.Logger.Warn("settings reload failed, keeping current config", zap.Error(err))
			}
		}
	}
}

// GetStats collects service statistics.
func (r *Runner) GetStats() ServiceStats {
	var stats ServiceStats

	stats.Build.Commit = BuildCommit
	stats.Build.Time = BuildTime
	stats.Build.GoVersion = runtime.Version()

	r.mu.RLock()
	startTime := r.startTime
	scheduler, dashboard, hub := r.scheduler, r.dashboard, r.hub
	r.mu.RUnlock()

	uptime := time.Since(startTime)
	stats.StartTime = startTime.UTC().Format(time.RFC3339)
	stats.Uptime = uptime.Round(time.Second).String()
	stats.UptimeSec = int64(uptime.Seconds())

	if scheduler != nil {
		stats.Scheduler = scheduler.Stats()
	}
	if dashboard != nil {
		view := dashboard.View()
		stats.View.Filter = string(view.Filter)
		stats.View.Rows = len(view.Rows)
		stats.View.Pending = len(view.Pending)
		stats.View.Hidden = dashboard.Board().HiddenCount()
		if at := dashboard.Board().UpdatedAt(); !at.IsZero() {
			stats.View.LastAlertAt = at.UTC().Format(time.RFC3339)
		}
	}
	if hub != nil {
		stats.View.Clients = hub.ClientCount()
	}

	cfg := r.liveConfig.Get()
	stats.ConfigRevision = r.liveConfig.Revision()

	stats.Notifications.DiscordEnabled = r.clients.Discord != nil && r.clients.Discord.Enabled()
	if stats.Notifications.DiscordEnabled {
		if cfg.IsProd {
			stats.Notifications.DiscordChannelID = cfg.Discord.ProdChannelID
		} else {
			stats.Notifications.DiscordChannelID = cfg.Discord.BetaChannelID
		}
	}
	stats.Notifications.TelegramEnabled = r.clients.Telegram != nil && r.clients.Telegram.Enabled()
	if stats.Notifications.TelegramEnabled {
		if cfg.IsProd {
			stats.Notifications.TelegramChatID = cfg.Telegram.ProdChatID
		} else {
			stats.Notifications.TelegramChatID = cfg.Telegram.BetaChatID
		}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats.Runtime.Goroutines = runtime.NumGoroutine()
	stats.Runtime.HeapAlloc = memStats.HeapAlloc
	stats.Runtime.NumGC = memStats.NumGC
	stats.Runtime.GoVersion = runtime.Version()
	stats.Runtime.NumCPU = runtime.NumCPU()

	return stats
}
