package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/core/logger"
)

// SecretHeader carries the webhook secret on every update Telegram delivers.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// AllowedUpdates lists the update kinds the relay consumes.
var AllowedUpdates = []string{"message", "callback_query"}

// WebhookOptions declares webhook registration settings.
type WebhookOptions struct {
	PublicURL string
	Secret    string
}

// RegisterWebhook points Telegram at PublicURL. Pending updates are kept.
func RegisterWebhook(ctx context.Context, bot *tele.Bot, opts WebhookOptions) error {
	publicURL := strings.TrimSpace(opts.PublicURL)
	if publicURL == "" {
		return fmt.Errorf("telegram: empty webhook url")
	}
	hook := &tele.Webhook{
		Endpoint:       &tele.WebhookEndpoint{PublicURL: publicURL},
		SecretToken:    opts.Secret,
		AllowedUpdates: AllowedUpdates,
	}
	if err := bot.SetWebhook(hook); err != nil {
		logger.TG.LogAttrs(ctx, slog.LevelError, "webhook registration failed",
			slog.String("event", "tg.webhook"),
			slog.String("public_url", publicURL),
			slog.String("err", SanitizeError(err)),
		)
		return fmt.Errorf("telegram: set webhook: %s", SanitizeError(err))
	}
	logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook registered",
		slog.String("event", "tg.webhook"),
		slog.String("public_url", publicURL),
		slog.Bool("secret", opts.Secret != ""),
	)
	return nil
}
