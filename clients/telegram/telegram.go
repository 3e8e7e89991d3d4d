package telegram

import (
	"alertdash/clients/notifier"
	"alertdash/config"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultAPIBase = "https://api.telegram.org"

// TelegramClient posts action notices to a Telegram chat.
// Implements notifier.Notifier interface.
type TelegramClient struct {
	logger   *zap.Logger
	botToken string
	chatID   string
	isProd   bool
	apiBase  string
	client   *http.Client
}

func NewTelegramClient(logger *zap.Logger, cfg *config.Config) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	chatID := cfg.Telegram.BetaChatID
	if cfg.IsProd {
		chatID = cfg.Telegram.ProdChatID
	}

	token := cfg.Telegram.BotToken
	if token == "" {
		logger.Warn("TELEGRAM_BOT_KEY not set, Telegram notices disabled")
		return &TelegramClient{
			logger:  logger,
			chatID:  chatID,
			isProd:  cfg.IsProd,
			apiBase: defaultAPIBase,
		}
	}

	logger.Info("telegram bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("chatID", chatID),
	)

	return &TelegramClient{
		logger:   logger,
		botToken: token,
		chatID:   chatID,
		isProd:   cfg.IsProd,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether notices will actually be delivered.
func (tc *TelegramClient) Enabled() bool {
	return tc.botToken != "" && tc.chatID != ""
}

// SendNotice delivers the notice as a Markdown message.
// Implements notifier.Notifier interface.
func (tc *TelegramClient) SendNotice(n notifier.Notice) {
	if !tc.Enabled() {
		tc.logger.Debug("telegram not configured, skipping notice")
		return
	}

	if err := tc.sendMessage(buildNoticeMessage(n)); err != nil {
		tc.logger.Error("failed to send telegram message", zap.Error(err))
		return
	}

	tc.logger.Info("sent telegram notice",
		zap.String("action", n.Action),
		zap.String("level", string(n.Level)),
	)
}

func buildNoticeMessage(n notifier.Notice) string {
	var sb strings.Builder

	icon := "ℹ️"
	switch n.Level {
	case notifier.LevelSuccess:
		icon = "✅"
	case notifier.LevelError:
		icon = "❌"
	}
	sb.WriteString(fmt.Sprintf("%s *%s*\n", icon, escapeMarkdown(n.Message)))

	if n.Symbol != "" {
		sb.WriteString(fmt.Sprintf("*Symbol:* %s\n", escapeMarkdown(n.Symbol)))
	}
	if n.Qty > 0 {
		sb.WriteString(fmt.Sprintf("*Qty:* %d\n", n.Qty))
	}
	if n.AlertID != "" {
		sb.WriteString(fmt.Sprintf("*Alert:* %s\n", escapeMarkdown(n.AlertID)))
	}
	if n.Filter != "" {
		sb.WriteString(fmt.Sprintf("*Filter:* %s\n", escapeMarkdown(n.Filter)))
	}
	if !n.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("_%s_", n.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (tc *TelegramClient) sendMessage(text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", tc.apiBase, tc.botToken)

	payload := map[string]interface{}{
		"chat_id":    tc.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := tc.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (tc *TelegramClient) Close() error {
	return nil
}

// escapeMarkdown escapes special characters for Telegram Markdown.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
