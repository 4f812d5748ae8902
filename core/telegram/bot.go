package telegram

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/core/logger"
)

// BotOptions configures NewBot.
type BotOptions struct {
	Token string
	// APIURL overrides the Bot API base URL; empty means api.telegram.org.
	APIURL string
	Client *http.Client
}

// NewBot creates an offline bot client: updates arrive through the HTTP
// webhook handler, so no poller is started and getMe is not called.
func NewBot(opts BotOptions) (*tele.Bot, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, fmt.Errorf("telegram: empty bot token")
	}
	client := opts.Client
	if client == nil {
		client = BuildHTTPClient()
	}

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   opts.Token,
		URL:     strings.TrimRight(opts.APIURL, "/"),
		Client:  client,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %s", SanitizeError(err))
	}
	logger.TG.Info("bot client ready",
		slog.String("event", "tg.init"),
		slog.String("mode", "webhook"),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return bot, nil
}
