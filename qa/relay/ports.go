package relay

import (
	"context"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/qa/domain"
)

// Gateway delivers messages to chats. Failures wrap
// domain.ErrChatResolutionFailed or domain.ErrDeliveryFailed.
type Gateway interface {
	SendMessage(ctx context.Context, chatID, text string, markup *tele.ReplyMarkup) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Store is the part of the row store the relay uses.
type Store interface {
	SetPendingQuestion(ctx context.Context, telegramID, questionID string) error
	PendingQuestion(ctx context.Context, telegramID string) (string, bool, error)
	ClearPendingQuestion(ctx context.Context, telegramID string) error
	ClearPendingQuestionIf(ctx context.Context, telegramID, questionID string) (bool, error)
	UpsertProfile(ctx context.Context, p domain.Participant) error
	Speaker(ctx context.Context, id string) (domain.Speaker, error)
	CreateQuestion(ctx context.Context, q *domain.Question) error
	QuestionDetails(ctx context.Context, id string) (domain.QuestionDetails, error)
	MarkAnswered(ctx context.Context, id, text string, at time.Time) error
}
