package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/qarelay/core/logger"
	"github.com/m3rciful/qarelay/qa/domain"
	"github.com/m3rciful/qarelay/qa/metrics"
)

// NewQuestion is a freshly stored question to announce to its speaker.
type NewQuestion struct {
	QuestionID    string
	SpeakerID     string
	Text          string
	AskerName     string
	AskerUsername string
	Anonymous     bool
	CreatedAt     time.Time
}

// Notifier tells a speaker about a new question and attaches the Answer button.
// It makes one delivery attempt; retrying is up to the caller.
type Notifier struct {
	store   Store
	gateway Gateway
	format  Formatter
}

// NewNotifier wires a Notifier.
func NewNotifier(store Store, gateway Gateway, format Formatter) *Notifier {
	return &Notifier{store: store, gateway: gateway, format: format}
}

// Notify delivers the new-question message. Errors wrap
// domain.ErrSpeakerNotFound, domain.ErrChatResolutionFailed,
// domain.ErrDeliveryFailed, or domain.ErrPersistence.
func (n *Notifier) Notify(ctx context.Context, q NewQuestion) error {
	start := time.Now()
	err := n.notify(ctx, q)

	outcome := "ok"
	level := slog.LevelInfo
	if err != nil {
		outcome = domain.Code(err)
		level = slog.LevelWarn
	}
	metrics.IncNotification("new_question", outcome)

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("question_id", q.QuestionID),
		slog.String("speaker_id", q.SpeakerID),
		slog.Bool("anonymous", q.Anonymous),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", err.Error()),
			slog.String("err_code", domain.Code(err)),
		)
	}
	logger.LogEvent(ctx, logger.Notify, level, "notify.new_question", attrs...)
	return err
}

func (n *Notifier) notify(ctx context.Context, q NewQuestion) error {
	if strings.TrimSpace(q.SpeakerID) == "" || strings.TrimSpace(q.QuestionID) == "" {
		return fmt.Errorf("notify: speaker_id and question_id are required: %w", domain.ErrInvalidInput)
	}
	speaker, err := n.store.Speaker(ctx, q.SpeakerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("notify speaker %s: %w", q.SpeakerID, domain.ErrSpeakerNotFound)
		}
		return fmt.Errorf("notify speaker %s: %w", q.SpeakerID, err)
	}
	chatID := ""
	if speaker.TelegramID != nil {
		chatID = NormalizeChatID(*speaker.TelegramID)
	}
	if chatID == "" {
		return fmt.Errorf("notify speaker %s: no chat id: %w", q.SpeakerID, domain.ErrSpeakerNotFound)
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}

	markup, err := AnswerMarkup(q.QuestionID)
	if err != nil {
		return fmt.Errorf("notify question %s: %w: %w", q.QuestionID, domain.ErrInvalidInput, err)
	}
	text := n.format.NewQuestionText(speaker.Name, q)
	if err := n.gateway.SendMessage(ctx, chatID, text, markup); err != nil {
		return fmt.Errorf("notify speaker %s: %w", q.SpeakerID, err)
	}
	return nil
}
