package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/mixelka/mailhook/internal/formatter"
	"github.com/mixelka/mailhook/pkg/models"
)

const sendTimeout = 10 * time.Second

// Config for the alert notifier
type Config struct {
	Token     string
	ChatID    int64
	TopicID   int
	ServerURL string // overrides the Bot API URL, used in tests
}

// Notifier delivers operator alerts to a Telegram chat or topic
type Notifier struct {
	bot       *bot.Bot
	chatID    int64
	topicID   int
	formatter *formatter.TelegramFormatter
	logger    *slog.Logger
}

// NewNotifier creates a new Telegram notifier
func NewNotifier(cfg Config, logger *slog.Logger) (*Notifier, error) {
	opts := []bot.Option{
		bot.WithSkipGetMe(),
	}
	if cfg.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.ServerURL))
	}

	tgBot, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Notifier{
		bot:       tgBot,
		chatID:    cfg.ChatID,
		topicID:   cfg.TopicID,
		formatter: formatter.NewTelegramFormatter(),
		logger:    logger.With("component", "telegram_notifier"),
	}, nil
}

// Alert sends one alert
func (n *Notifier) Alert(ctx context.Context, alert models.Alert) error {
	// Use separate context with timeout to avoid blocking
	apiCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, err := n.sendMessage(apiCtx, n.formatter.FormatAlert(alert)); err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}
	return nil
}

// Handler returns a fire-and-forget alert callback for components that must
// not block on delivery
func (n *Notifier) Handler() func(models.Alert) {
	return func(alert models.Alert) {
		go func() {
			if err := n.Alert(context.Background(), alert); err != nil {
				n.logger.Error("failed to deliver alert", "error", err, "title", alert.Title)
			}
		}()
	}
}

// sendMessage sends a message to the configured chat and topic
func (n *Notifier) sendMessage(ctx context.Context, text string) (*tgmodels.Message, error) {
	params := &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	}

	if n.topicID != 0 {
		params.MessageThreadID = n.topicID
	}

	return n.bot.SendMessage(ctx, params)
}
