package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/m3rciful/qarelay/core/logger"
	"github.com/m3rciful/qarelay/core/telegram/format"
	"github.com/m3rciful/qarelay/qa/domain"
	"github.com/m3rciful/qarelay/qa/metrics"
)

// MaxQuestionLength caps question text in runes. Telegram rejects messages
// over 4096 characters and the notification adds its own framing.
const MaxQuestionLength = 3500

// SubmitInput is a question as posted by the event frontend.
type SubmitInput struct {
	SpeakerID        string
	Text             string
	AuthorName       string
	AuthorUsername   string
	AuthorTelegramID string
	Anonymous        bool
	EventID          string
	SessionID        string
}

// SubmitResult reports the stored id and whether the speaker was reached.
type SubmitResult struct {
	QuestionID string
	Delivered  bool
	ErrCode    string
}

// Submitter stores new questions and announces them to their speaker.
type Submitter struct {
	store    Store
	notifier *Notifier
	now      func() time.Time
	newID    func() string
}

// NewSubmitter wires a Submitter on top of a Notifier.
func NewSubmitter(store Store, notifier *Notifier) *Submitter {
	return &Submitter{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Submit validates and stores the question, then notifies the speaker once.
// A failed notification keeps the row and is reported in the result only.
func (s *Submitter) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	in.SpeakerID = strings.TrimSpace(in.SpeakerID)
	in.Text = strings.TrimSpace(in.Text)
	switch {
	case in.SpeakerID == "":
		return SubmitResult{}, fmt.Errorf("submit: speaker_id is required: %w", domain.ErrInvalidInput)
	case in.Text == "":
		return SubmitResult{}, fmt.Errorf("submit: text is required: %w", domain.ErrInvalidInput)
	case utf8.RuneCountInString(in.Text) > MaxQuestionLength:
		return SubmitResult{}, fmt.Errorf("submit: text longer than %d characters: %w", MaxQuestionLength, domain.ErrInvalidInput)
	}

	q := &domain.Question{
		ID:          s.newID(),
		SpeakerID:   in.SpeakerID,
		EventID:     format.StringPtr(in.EventID),
		SessionID:   format.StringPtr(in.SessionID),
		Text:        in.Text,
		IsAnonymous: in.Anonymous,
		CreatedAt:   s.now().UTC(),
	}
	if !in.Anonymous {
		q.AuthorName = format.StringPtr(in.AuthorName)
		q.AuthorUsername = format.StringPtr(normalizeHandle(in.AuthorUsername))
	}
	// The author id is kept for anonymous questions too so the answer can reach them.
	q.AuthorTelegramID = format.StringPtr(in.AuthorTelegramID)

	if _, err := s.store.Speaker(ctx, q.SpeakerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return SubmitResult{}, fmt.Errorf("submit: speaker %s: %w", q.SpeakerID, domain.ErrSpeakerNotFound)
		}
		return SubmitResult{}, fmt.Errorf("submit: %w", err)
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return SubmitResult{}, fmt.Errorf("submit: %w", err)
	}
	metrics.IncQuestionSubmitted(q.IsAnonymous)
	logger.LogEvent(ctx, logger.Relay, slog.LevelInfo, "relay.question.stored",
		slog.String("question_id", q.ID),
		slog.String("speaker_id", q.SpeakerID),
		slog.Bool("anonymous", q.IsAnonymous),
	)

	res := SubmitResult{QuestionID: q.ID}
	err := s.notifier.Notify(ctx, NewQuestion{
		QuestionID:    q.ID,
		SpeakerID:     q.SpeakerID,
		Text:          q.Text,
		AskerName:     format.Deref(q.AuthorName, ""),
		AskerUsername: format.Deref(q.AuthorUsername, ""),
		Anonymous:     q.IsAnonymous,
		CreatedAt:     q.CreatedAt,
	})
	if err != nil {
		res.ErrCode = domain.Code(err)
		return res, nil
	}
	res.Delivered = true
	return res, nil
}
