// Package store persists participants, speakers, and questions.
package store

import (
	"context"
	"time"

	"github.com/m3rciful/qarelay/qa/domain"
)

// Store is the row store used by the relay. Missing rows surface as
// domain.ErrNotFound; backend failures wrap domain.ErrPersistence.
type Store interface {
	// SetPendingQuestion upserts the participant and points it at questionID.
	SetPendingQuestion(ctx context.Context, telegramID, questionID string) error
	// PendingQuestion returns the participant's pending question id, if any.
	PendingQuestion(ctx context.Context, telegramID string) (string, bool, error)
	// ClearPendingQuestion resets the pointer unconditionally.
	ClearPendingQuestion(ctx context.Context, telegramID string) error
	// ClearPendingQuestionIf resets the pointer only while it still equals questionID.
	ClearPendingQuestionIf(ctx context.Context, telegramID, questionID string) (bool, error)
	// UpsertProfile stores name and handle without touching the pointer.
	UpsertProfile(ctx context.Context, p domain.Participant) error
	Participant(ctx context.Context, telegramID string) (domain.Participant, error)

	Speaker(ctx context.Context, id string) (domain.Speaker, error)
	UpsertSpeaker(ctx context.Context, s domain.Speaker) error

	CreateQuestion(ctx context.Context, q *domain.Question) error
	Question(ctx context.Context, id string) (domain.Question, error)
	QuestionDetails(ctx context.Context, id string) (domain.QuestionDetails, error)
	// MarkAnswered records the answer once. A second call fails with
	// domain.ErrAlreadyAnswered and leaves the row unchanged.
	MarkAnswered(ctx context.Context, id, text string, at time.Time) error
}
