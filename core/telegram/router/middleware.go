package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/core/logger"
	"github.com/m3rciful/qarelay/core/telegram/callbacks"
)

// ErrPanic is returned when a handler panicked.
var ErrPanic = errors.New("handler panic")

// RecoverMiddleware turns handler panics into ErrPanic so the webhook still gets an answer.
func RecoverMiddleware(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, upd *tele.Update) (status Status, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.TG.LogAttrs(ctx, slog.LevelError, "panic recovered",
					slog.String("event", "tg.panic"),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				status, err = "", fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()
		return next(ctx, upd)
	}
}

// LoggerMiddleware attaches update metadata to the context and logs a sampled
// receipt line per update.
func LoggerMiddleware(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, upd *tele.Update) (Status, error) {
		ctx = BuildContext(ctx, upd)
		if logger.ShouldSampleDebug() {
			attrs := []slog.Attr{
				slog.String("update_kind", Kind(upd)),
			}
			if u := Sender(upd); u != nil && u.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
			}
			switch {
			case upd == nil:
			case upd.Callback != nil:
				key, payload := callbacks.ParseData(upd.Callback.Data)
				attrs = append(attrs,
					slog.String("cb_key", logger.SanitizeLimit(key, 64)),
					slog.String("payload", logger.SanitizeLimit(payload, 128)),
				)
			case upd.Message != nil:
				if cmd := CommandName(upd.Message.Text); cmd != "" {
					attrs = append(attrs, slog.String("payload", cmd))
				}
			}
			logger.LogEvent(ctx, nil, slog.LevelDebug, "update.received", attrs...)
		}
		return next(ctx, upd)
	}
}
