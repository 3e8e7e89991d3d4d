package main

import (
	clts "alertdash/clients"
	"alertdash/config"
	"alertdash/internal/app"
	"alertdash/internal/metrics"
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// .env is optional; real environment variables win
	config.LoadDotEnv(logger)

	// Load config from environment variables
	envConfig := config.Load()
	logger.Info("starting alert dashboard", zap.Bool("isProd", envConfig.IsProd))

	// Create LiveConfig with env config as initial value
	liveConfig := config.NewLiveConfig(envConfig)

	settingsPath := os.Getenv(config.SettingsPathEnv)
	settingsManager := config.NewSettingsManager(logger, settingsPath, liveConfig)

	// Overlay the settings file if one is configured
	if settingsManager.IsEnabled() {
		logger.Info("loading settings file", zap.String("path", settingsPath))
		cfg, err := settingsManager.LoadSettings(envConfig)
		if err != nil {
			logger.Warn("failed to load settings file, using env/defaults", zap.Error(err))
		} else if err := liveConfig.Update(cfg); err != nil {
			logger.Warn("failed to apply settings file", zap.Error(err))
		} else {
			logger.Info("settings loaded from file")
		}
	} else {
		logger.Info("settings file not configured, using env/defaults")
	}

	if v := liveConfig.Get().Validate(); !v.Valid {
		for _, e := range v.Errors {
			logger.Error("invalid config", zap.String("field", e.Field), zap.String("message", e.Message))
		}
		logger.Fatal("refusing to start with invalid config")
	}

	logger.Info("instantiating clients")
	clients := clts.NewClients(logger, liveConfig.Get())

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	runner := app.NewRunner(clients, liveConfig, settingsManager, metrics.New(nil))
	if err := runner.Run(ctx); err != nil {
		logger.Fatal("runner failed", zap.Error(err))
	}
}
