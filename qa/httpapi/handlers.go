package httpapi

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/core/logger"
	"github.com/m3rciful/qarelay/core/telegram"
	"github.com/m3rciful/qarelay/core/telegram/helpers"
	"github.com/m3rciful/qarelay/qa/domain"
	"github.com/m3rciful/qarelay/qa/relay"
)

type statusBody struct {
	Status string `json:"status"`
}

// handleWebhook always acknowledges with 200 once the secret checks out;
// failures are reported in the body and the log only.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if secret := s.deps.WebhookSecret; secret != "" {
		got := r.Header.Get(telegram.SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			logger.LogEvent(ctx, logger.HTTP, slog.LevelWarn, "webhook.rejected",
				slog.String("status", "unauthorized"),
			)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	}

	var upd tele.Update
	if err := decodeJSON(w, r, &upd); err != nil {
		logger.LogEvent(ctx, logger.HTTP, slog.LevelWarn, "webhook.bad_request",
			slog.String("err", err.Error()),
		)
		writeError(w, http.StatusOK, "invalid update")
		return
	}

	status, err := s.deps.Dispatcher.Dispatch(ctx, &upd)
	if err != nil {
		logger.LogEvent(ctx, logger.HTTP, slog.LevelError, "webhook.failed",
			slog.Int("update_id", upd.ID),
			slog.String("status", string(status)),
			slog.String("err", err.Error()),
			slog.String("err_code", domain.Code(err)),
		)
		writeError(w, http.StatusOK, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Status: string(status)})
}

type notifyRequest struct {
	SpeakerID     string `json:"speaker_id"`
	QuestionID    string `json:"question_id"`
	Text          string `json:"text"`
	AskerName     string `json:"asker_name"`
	AskerUsername string `json:"asker_username"`
	IsAnonymous   bool   `json:"is_anonymous"`
	Timestamp     string `json:"timestamp"`
}

type failureBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	createdAt := s.now()
	if strings.TrimSpace(req.Timestamp) != "" {
		t, ok := helpers.ParseTimestamp(req.Timestamp, s.deps.Location)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid timestamp")
			return
		}
		createdAt = t
	}

	err := s.deps.Notifier.Notify(r.Context(), relay.NewQuestion{
		QuestionID:    req.QuestionID,
		SpeakerID:     req.SpeakerID,
		Text:          req.Text,
		AskerName:     req.AskerName,
		AskerUsername: req.AskerUsername,
		Anonymous:     req.IsAnonymous,
		CreatedAt:     createdAt,
	})
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidInput) {
			code = http.StatusBadRequest
		}
		writeJSON(w, code, failureBody{Error: failureMessage(err), Code: domain.Code(err)})
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Status: "ok"})
}

type submitRequest struct {
	SpeakerID        string `json:"speaker_id"`
	Text             string `json:"text"`
	AuthorName       string `json:"author_name"`
	AuthorUsername   string `json:"author_username"`
	AuthorTelegramID string `json:"author_telegram_id"`
	IsAnonymous      bool   `json:"is_anonymous"`
	EventID          string `json:"event_id"`
	SessionID        string `json:"session_id"`
}

type submitResponse struct {
	Status     string `json:"status"`
	QuestionID string `json:"question_id"`
	Delivered  bool   `json:"delivered"`
	ErrorCode  string `json:"error_code,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.deps.Submitter.Submit(r.Context(), relay.SubmitInput{
		SpeakerID:        req.SpeakerID,
		Text:             req.Text,
		AuthorName:       req.AuthorName,
		AuthorUsername:   req.AuthorUsername,
		AuthorTelegramID: req.AuthorTelegramID,
		Anonymous:        req.IsAnonymous,
		EventID:          req.EventID,
		SessionID:        req.SessionID,
	})
	if err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			code = http.StatusBadRequest
		case errors.Is(err, domain.ErrSpeakerNotFound):
			code = http.StatusNotFound
		}
		writeJSON(w, code, failureBody{Error: failureMessage(err), Code: domain.Code(err)})
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		Status:     "ok",
		QuestionID: res.QuestionID,
		Delivered:  res.Delivered,
		ErrorCode:  res.ErrCode,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.deps.Version,
		"commit":  s.deps.Commit,
	})
}

// failureMessage keeps client-facing errors short. Backend details stay in the log.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, domain.ErrSpeakerNotFound):
		return "speaker not found"
	case errors.Is(err, domain.ErrChatResolutionFailed):
		return "speaker chat could not be resolved"
	case errors.Is(err, domain.ErrDeliveryFailed):
		return "telegram delivery failed"
	}
	return "internal error"
}
