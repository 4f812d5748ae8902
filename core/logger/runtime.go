package logger

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
)

type ctxKey int

const (
	keyLogger ctxKey = iota
	keyRID
	keyUpdate
	keyHandler
)

// updateMeta identifies the Telegram update behind a request.
type updateMeta struct {
	updateID int
	userID   int64
	chatID   int64
}

// WithLogger stores log in ctx. A nil log leaves ctx unchanged.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, keyLogger, log)
}

// FromContext returns the logger stored in ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := value[*slog.Logger](ctx, keyLogger); ok && l != nil {
		return l
	}
	return L
}

// WithRID attaches the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, keyRID, rid)
}

// RIDFrom returns the correlation id, if any.
func RIDFrom(ctx context.Context) string {
	rid, _ := value[string](ctx, keyRID)
	return rid
}

// WithUpdateMeta attaches the ids of the Telegram update being handled.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, keyUpdate, updateMeta{updateID: updateID, userID: userID, chatID: chatID})
}

// WithHandler names the handler serving the request.
func WithHandler(ctx context.Context, handler string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if handler == "" {
		return ctx
	}
	return context.WithValue(ctx, keyHandler, handler)
}

// HandlerFrom returns the handler name, if any.
func HandlerFrom(ctx context.Context) string {
	h, _ := value[string](ctx, keyHandler)
	return h
}

// UserIDFrom returns the Telegram user id of the current update.
func UserIDFrom(ctx context.Context) int64 {
	m, _ := value[updateMeta](ctx, keyUpdate)
	return m.userID
}

// ChatIDFrom returns the chat id of the current update.
func ChatIDFrom(ctx context.Context) int64 {
	m, _ := value[updateMeta](ctx, keyUpdate)
	return m.chatID
}

// UpdateIDFrom returns the id of the current update.
func UpdateIDFrom(ctx context.Context) int {
	m, _ := value[updateMeta](ctx, keyUpdate)
	return m.updateID
}

func value[T any](ctx context.Context, key ctxKey) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	v, ok := ctx.Value(key).(T)
	return v, ok
}

// Sanitize drops control and format runes except tab and newline.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeLimit applies Sanitize and limits the output length in runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}

// ShortRID returns the first dash-separated segment of a uuid-style rid.
// Other shapes are returned unchanged.
func ShortRID(rid string) string {
	rid = strings.TrimSpace(rid)
	head, _, found := strings.Cut(rid, "-")
	if !found || len(head) < 6 {
		return rid
	}
	return head
}
