package discord

import (
	"alertdash/clients/notifier"
	"alertdash/config"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorSuccess = 0x2ECC71
	colorError   = 0xE74C3C
	colorInfo    = 0x3498DB
)

// DiscordClient posts action notices to a Discord channel.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger    *zap.Logger
	session   *discordgo.Session
	channelID string
	isProd    bool
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	channelID := cfg.Discord.BetaChannelID
	if cfg.IsProd {
		channelID = cfg.Discord.ProdChannelID
	}

	token := cfg.Discord.BotToken
	if token == "" {
		logger.Warn("DISCORD_BOT_TOKEN not set, Discord notices disabled")
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	logger.Info("discord bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("channelID", channelID),
	)

	return &DiscordClient{
		logger:    logger,
		session:   session,
		channelID: channelID,
		isProd:    cfg.IsProd,
	}
}

// Enabled reports whether notices will actually be delivered.
func (dc *DiscordClient) Enabled() bool {
	return dc.session != nil && dc.channelID != ""
}

// SendNotice posts the notice as an embed.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendNotice(n notifier.Notice) {
	if !dc.Enabled() {
		dc.logger.Debug("discord not configured, skipping notice")
		return
	}

	_, err := dc.session.ChannelMessageSendEmbed(dc.channelID, buildNoticeEmbed(n))
	if err != nil {
		dc.logger.Error("failed to send discord embed", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord notice",
		zap.String("action", n.Action),
		zap.String("level", string(n.Level)),
	)
}

func buildNoticeEmbed(n notifier.Notice) *discordgo.MessageEmbed {
	color := colorInfo
	title := "ℹ️ " + actionTitle(n.Action)
	switch n.Level {
	case notifier.LevelSuccess:
		color = colorSuccess
		title = "✅ " + actionTitle(n.Action)
	case notifier.LevelError:
		color = colorError
		title = "❌ " + actionTitle(n.Action) + " failed"
	}

	var fields []*discordgo.MessageEmbedField
	if n.Symbol != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Symbol", Value: n.Symbol, Inline: true})
	}
	if n.Qty > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Qty", Value: fmt.Sprintf("%d", n.Qty), Inline: true})
	}
	if n.AlertID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Alert", Value: n.AlertID, Inline: true})
	}
	if n.Filter != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Filter", Value: n.Filter, Inline: true})
	}

	ts := n.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: n.Message,
		Color:       color,
		Fields:      fields,
		Timestamp:   ts.UTC().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "alertdash",
		},
	}
}

func actionTitle(action string) string {
	switch action {
	case "buy":
		return "Buy"
	case "sell":
		return "Sell"
	case "clear":
		return "Clear"
	case "clearAll":
		return "Clear all"
	case "reset":
		return "Simulation reset"
	case "":
		return "Notice"
	default:
		return action
	}
}

// Close closes the Discord session. Implements notifier.Notifier interface.
func (dc *DiscordClient) Close() error {
	if dc.session == nil {
		return nil
	}
	return dc.session.Close()
}
