package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/core/logger"
	"github.com/m3rciful/qarelay/core/telegram/format"
	"github.com/m3rciful/qarelay/core/telegram/helpers"
	"github.com/m3rciful/qarelay/core/telegram/router"
	"github.com/m3rciful/qarelay/qa/domain"
	"github.com/m3rciful/qarelay/qa/metrics"
)

// Status is the result reported back to the webhook caller.
type Status = router.Status

const (
	StatusOK                Status = router.StatusOK
	StatusIgnored           Status = router.StatusIgnored
	StatusCallbackProcessed Status = "callback_processed"
	StatusAnswerProcessed   Status = "answer_processed"
)

// DispatcherOptions tunes the Dispatcher.
type DispatcherOptions struct {
	// Now supplies the answer timestamp. Defaults to time.Now.
	Now func() time.Time
	// ConditionalClear clears the pending pointer only if it still names the
	// answered question, so a press that landed mid-answer survives.
	ConditionalClear bool
}

// Dispatcher runs the pending-question protocol over webhook updates.
// All per-participant state lives in the store's pending pointer.
type Dispatcher struct {
	store   Store
	gateway Gateway
	format  Formatter
	opts    DispatcherOptions
	router  *router.Router
	reg     *router.Registry
}

// NewDispatcher wires the protocol handlers into a router registry.
func NewDispatcher(store Store, gateway Gateway, f Formatter, opts DispatcherOptions) *Dispatcher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	d := &Dispatcher{store: store, gateway: gateway, format: f, opts: opts}

	reg := router.NewRegistry()
	_ = reg.RegisterCommand("/start", router.Command{Handler: d.handleStart, Description: startCommandCaption})
	_ = reg.RegisterCallback(AnswerAction, d.handleAnswerPress)
	reg.SetTextFallback(d.handleText)

	d.reg = reg
	d.router = router.New(reg, router.Options{ErrorCode: domain.Code})
	return d
}

// Registry exposes the command registry for publishing the bot menu.
func (d *Dispatcher) Registry() *router.Registry {
	return d.reg
}

// Dispatch routes one update. A non-nil error means a store or internal
// failure; the caller acknowledges the webhook regardless.
func (d *Dispatcher) Dispatch(ctx context.Context, upd *tele.Update) (Status, error) {
	status, err := d.router.Route(ctx, upd)
	label := string(status)
	if err != nil {
		label = "error"
	}
	metrics.IncUpdate(router.Kind(upd), label)
	return status, err
}

// handleAnswerPress points the presser at the question. Any earlier pending
// question is replaced without notice.
func (d *Dispatcher) handleAnswerPress(ctx context.Context, cb *tele.Callback, payload string) (Status, error) {
	participant := helpers.UserKey(cb.Sender)
	questionID := strings.TrimSpace(payload)
	if participant == "" || questionID == "" {
		return StatusIgnored, nil
	}

	if err := d.store.SetPendingQuestion(ctx, participant, questionID); err != nil {
		return "", fmt.Errorf("answer press: %w", err)
	}
	logger.LogEvent(ctx, logger.Relay, slog.LevelInfo, "relay.pending.set",
		slog.String("question_id", questionID),
	)

	if err := d.gateway.SendMessage(ctx, participant, answerInstruction, nil); err != nil {
		d.warn(ctx, "relay.instruction.failed", questionID, err)
	}
	if err := d.gateway.AnswerCallback(ctx, cb.ID, answerCallbackText); err != nil {
		d.warn(ctx, "relay.callback_ack.failed", questionID, err)
	}
	return StatusCallbackProcessed, nil
}

// handleStart refreshes the profile and greets the user. The pending pointer is left alone.
func (d *Dispatcher) handleStart(ctx context.Context, msg *tele.Message) (Status, error) {
	participant := helpers.UserKey(msg.Sender)
	if participant == "" {
		return StatusIgnored, nil
	}
	fullName := helpers.FullName(msg.Sender)
	profile := domain.Participant{
		TelegramID: participant,
		FullName:   format.StringPtr(fullName),
		Username:   format.StringPtr(msg.Sender.Username),
	}
	if err := d.store.UpsertProfile(ctx, profile); err != nil {
		return "", fmt.Errorf("start: %w", err)
	}
	if err := d.gateway.SendMessage(ctx, participant, d.format.WelcomeText(fullName), nil); err != nil {
		d.warn(ctx, "relay.welcome.failed", "", err)
	}
	return StatusOK, nil
}

// handleText treats the message as an answer when the sender has a pending question.
func (d *Dispatcher) handleText(ctx context.Context, msg *tele.Message) (Status, error) {
	participant := helpers.UserKey(msg.Sender)
	if participant == "" {
		return StatusIgnored, nil
	}
	questionID, ok, err := d.store.PendingQuestion(ctx, participant)
	if err != nil {
		return "", fmt.Errorf("pending lookup: %w", err)
	}
	if !ok {
		return StatusIgnored, nil
	}
	return d.recordAnswer(ctx, participant, questionID, msg.Text)
}

func (d *Dispatcher) recordAnswer(ctx context.Context, participant, questionID, answer string) (Status, error) {
	details, err := d.store.QuestionDetails(ctx, questionID)
	if errors.Is(err, domain.ErrNotFound) {
		return d.dropDanglingPointer(ctx, participant, questionID)
	}
	if err != nil {
		return "", fmt.Errorf("load question %s: %w", questionID, err)
	}

	// The answer is stored before the pointer is cleared so a crash in
	// between leaves the question answered.
	answeredAt := d.opts.Now()
	if err := d.store.MarkAnswered(ctx, questionID, answer, answeredAt); err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyAnswered):
			return d.rejectReanswer(ctx, participant, questionID)
		case errors.Is(err, domain.ErrNotFound):
			return d.dropDanglingPointer(ctx, participant, questionID)
		}
		return "", fmt.Errorf("record answer %s: %w", questionID, err)
	}

	clearErr := d.clearPointer(ctx, participant, questionID)

	notified := false
	if asker := strings.TrimSpace(format.Deref(details.AuthorTelegramID, "")); asker != "" {
		text := d.format.AnswerText(details.Text, details.SpeakerName, answer, answeredAt)
		err := d.gateway.SendMessage(ctx, asker, text, nil)
		outcome := "ok"
		if err != nil {
			outcome = domain.Code(err)
			d.warn(ctx, "relay.asker_notify.failed", questionID, err)
		}
		notified = err == nil
		metrics.IncNotification("answer", outcome)
	}

	if err := d.gateway.SendMessage(ctx, participant, answerConfirmation, nil); err != nil {
		d.warn(ctx, "relay.confirmation.failed", questionID, err)
	}

	metrics.IncAnswer("recorded")
	logger.LogEvent(ctx, logger.Relay, slog.LevelInfo, "relay.answer.recorded",
		slog.String("question_id", questionID),
		slog.Bool("delivered", notified),
		slog.Bool("cleared", clearErr == nil),
	)
	return StatusAnswerProcessed, clearErr
}

func (d *Dispatcher) clearPointer(ctx context.Context, participant, questionID string) error {
	if !d.opts.ConditionalClear {
		if err := d.store.ClearPendingQuestion(ctx, participant); err != nil {
			return fmt.Errorf("clear pending: %w", err)
		}
		return nil
	}
	cleared, err := d.store.ClearPendingQuestionIf(ctx, participant, questionID)
	if err != nil {
		return fmt.Errorf("clear pending: %w", err)
	}
	if !cleared {
		logger.LogEvent(ctx, logger.Relay, slog.LevelInfo, "relay.pending.kept",
			slog.String("question_id", questionID),
			slog.String("cause", "pointer_moved"),
		)
	}
	return nil
}

func (d *Dispatcher) dropDanglingPointer(ctx context.Context, participant, questionID string) (Status, error) {
	metrics.IncAnswer("dangling")
	logger.LogEvent(ctx, logger.Relay, slog.LevelWarn, "relay.pending.dangling",
		slog.String("question_id", questionID),
		slog.String("err_code", domain.Code(domain.ErrDanglingPointer)),
	)
	if err := d.store.ClearPendingQuestion(ctx, participant); err != nil {
		return "", fmt.Errorf("clear dangling pointer %s: %w", questionID, err)
	}
	return StatusIgnored, nil
}

func (d *Dispatcher) rejectReanswer(ctx context.Context, participant, questionID string) (Status, error) {
	metrics.IncAnswer("already_answered")
	logger.LogEvent(ctx, logger.Relay, slog.LevelInfo, "relay.answer.duplicate",
		slog.String("question_id", questionID),
		slog.String("err_code", domain.Code(domain.ErrAlreadyAnswered)),
	)
	clearErr := d.clearPointer(ctx, participant, questionID)
	if err := d.gateway.SendMessage(ctx, participant, alreadyAnsweredText, nil); err != nil {
		d.warn(ctx, "relay.duplicate_notice.failed", questionID, err)
	}
	return StatusAnswerProcessed, clearErr
}

func (d *Dispatcher) warn(ctx context.Context, event, questionID string, err error) {
	logger.LogEvent(ctx, logger.Relay, slog.LevelWarn, event,
		slog.String("question_id", questionID),
		slog.String("err", err.Error()),
		slog.String("err_code", domain.Code(err)),
	)
}
