// Package gateway delivers relay messages through the Telegram Bot API.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/core/logger"
	tg "github.com/m3rciful/qarelay/core/telegram"
	"github.com/m3rciful/qarelay/qa/domain"
	"github.com/m3rciful/qarelay/qa/metrics"
)

// API is the subset of *tele.Bot the gateway calls.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
	SetCommands(opts ...interface{}) error
}

// Telegram sends messages and callback answers. Chat-not-found failures map
// to domain.ErrChatResolutionFailed; every other failure to domain.ErrDeliveryFailed.
type Telegram struct {
	api API
}

// NewTelegram wraps a bot client.
func NewTelegram(api API) *Telegram {
	return &Telegram{api: api}
}

// chatRef addresses a chat by numeric id or public handle.
type chatRef string

func (c chatRef) Recipient() string { return string(c) }

// SendMessage sends an HTML message with link previews disabled.
func (t *Telegram) SendMessage(ctx context.Context, chatID, text string, markup *tele.ReplyMarkup) error {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return fmt.Errorf("send message: empty chat id: %w", domain.ErrChatResolutionFailed)
	}
	opts := &tele.SendOptions{
		ParseMode:   tele.ModeHTML,
		ReplyMarkup: markup,
	}
	return t.call(ctx, "sendMessage", func() error {
		_, err := t.api.Send(chatRef(chatID), text, opts, tele.NoPreview)
		return err
	})
}

// AnswerCallback acknowledges a button press with a short toast text.
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return t.call(ctx, "answerCallbackQuery", func() error {
		return t.api.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
	})
}

// SetCommands publishes the bot command menu.
func (t *Telegram) SetCommands(ctx context.Context, cmds []tele.Command) error {
	return t.call(ctx, "setMyCommands", func() error {
		return t.api.SetCommands(cmds)
	})
}

func (t *Telegram) call(ctx context.Context, method string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", method, domain.ErrDeliveryFailed, err)
	}
	start := time.Now()
	err := fn()
	took := time.Since(start)
	metrics.ObserveTelegramCall(method, took, err == nil)
	if err == nil {
		logger.TG.LogAttrs(ctx, slog.LevelDebug, "tg.call",
			slog.String("event", "tg.call"),
			slog.String("op", method),
			slog.String("outcome", "ok"),
			slog.Duration("duration", took),
		)
		return nil
	}

	kind := domain.ErrDeliveryFailed
	if tg.IsChatNotFound(err) {
		kind = domain.ErrChatResolutionFailed
	}
	logger.TG.LogAttrs(ctx, slog.LevelWarn, "tg.call",
		slog.String("event", "tg.call"),
		slog.String("op", method),
		slog.String("outcome", "fail"),
		slog.Duration("duration", took),
		slog.Int("http_code", tg.StatusCode(err)),
		slog.String("cause", tg.ClassifyError(err)),
		slog.String("err", tg.SanitizeError(err)),
	)
	return &Error{Method: method, kind: kind, msg: tg.SanitizeError(err)}
}

// Error is a Bot API failure with the token already redacted from its text.
type Error struct {
	Method string
	kind   error
	msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Method, e.kind, e.msg)
}

// Unwrap exposes the domain error kind to errors.Is.
func (e *Error) Unwrap() error { return e.kind }
