package clients

import (
	"alertdash/clients/alertapi"
	"alertdash/clients/discord"
	"alertdash/clients/notifier"
	"alertdash/clients/telegram"
	"alertdash/config"

	"go.uber.org/zap"
)

type Clients struct {
	Logger *zap.Logger

	AlertAPI *alertapi.Client
	Discord  *discord.DiscordClient
	Telegram *telegram.TelegramClient
	Notifier *notifier.MultiNotifier // Chat notifiers queue off the caller; the dashboard hub is added by the app
}

func NewClients(logger *zap.Logger, cfg *config.Config) *Clients {
	if logger == nil {
		logger = zap.NewNop()
	}

	discordClient := discord.NewDiscordClient(logger, cfg)
	telegramClient := telegram.NewTelegramClient(logger, cfg)

	return &Clients{
		Logger:   logger,
		AlertAPI: alertapi.NewClient(logger, cfg),
		Discord:  discordClient,
		Telegram: telegramClient,
		Notifier: notifier.NewMultiNotifier(
			notifier.NewAsyncNotifier(logger, discordClient, notifier.DefaultQueueSize),
			notifier.NewAsyncNotifier(logger, telegramClient, notifier.DefaultQueueSize),
		),
	}
}
