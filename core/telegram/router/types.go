package router

import (
	"context"

	tele "gopkg.in/telebot.v4"
)

// Status is the outcome reported for a routed update.
type Status string

const (
	// StatusOK marks an update handled without a more specific outcome.
	StatusOK Status = "ok"
	// StatusIgnored marks an update that no handler took.
	StatusIgnored Status = "ignored"
)

// HandlerFunc processes one decoded update.
type HandlerFunc func(ctx context.Context, upd *tele.Update) (Status, error)

// MiddlewareFunc wraps a HandlerFunc.
type MiddlewareFunc func(next HandlerFunc) HandlerFunc

// MessageHandler handles a text message or a command.
type MessageHandler func(ctx context.Context, msg *tele.Message) (Status, error)

// CallbackHandler handles an inline button press. Payload is the part of the
// callback data after the key.
type CallbackHandler func(ctx context.Context, cb *tele.Callback, payload string) (Status, error)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     MessageHandler
	Description string
	Hidden      bool
	Aliases     []string
}
