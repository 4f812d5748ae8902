package router

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/core/logger"
)

// Sender returns the user behind an update, if any.
func Sender(upd *tele.Update) *tele.User {
	switch {
	case upd == nil:
		return nil
	case upd.Callback != nil:
		return upd.Callback.Sender
	case upd.Message != nil:
		return upd.Message.Sender
	}
	return nil
}

// Kind names the update shape for logs and metrics.
func Kind(upd *tele.Update) string {
	switch {
	case upd == nil:
		return "none"
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	}
	return "other"
}

// BuildContext enriches ctx with update metadata and the tg logger.
// The rid set by the HTTP layer is kept.
func BuildContext(ctx context.Context, upd *tele.Update) context.Context {
	var userID, chatID int64
	if u := Sender(upd); u != nil {
		userID = u.ID
	}
	if upd != nil && upd.Message != nil && upd.Message.Chat != nil {
		chatID = upd.Message.Chat.ID
	} else {
		chatID = userID
	}
	updateID := 0
	if upd != nil {
		updateID = upd.ID
	}
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	return logger.WithLogger(ctx, logger.Component("tg"))
}
