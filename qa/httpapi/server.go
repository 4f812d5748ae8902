// Package httpapi exposes the relay over HTTP: the Telegram webhook, the
// notify hook, question submission, and operational routes.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/qa/metrics"
	"github.com/m3rciful/qarelay/qa/relay"
)

// UpdateDispatcher consumes Telegram updates.
type UpdateDispatcher interface {
	Dispatch(ctx context.Context, upd *tele.Update) (relay.Status, error)
}

// SpeakerNotifier announces a stored question to its speaker.
type SpeakerNotifier interface {
	Notify(ctx context.Context, q relay.NewQuestion) error
}

// QuestionSubmitter stores and announces a new question.
type QuestionSubmitter interface {
	Submit(ctx context.Context, in relay.SubmitInput) (relay.SubmitResult, error)
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Dispatcher UpdateDispatcher
	Notifier   SpeakerNotifier
	Submitter  QuestionSubmitter

	// WebhookSecret, when set, must match the secret token header on /webhook.
	WebhookSecret string
	// CORSOrigins is "*" or a comma-separated origin list.
	CORSOrigins string
	// Location reads zone-less /notify timestamps.
	Location *time.Location

	Version string
	Commit  string
}

// Server holds the HTTP handlers.
type Server struct {
	deps Deps
	now  func() time.Time
}

// NewServer builds a Server.
func NewServer(deps Deps) *Server {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &Server{deps: deps, now: time.Now}
}

// Register mounts every route on r.
func Register(r chi.Router, srv *Server) {
	r.Use(RequestID, AccessLog, Recover, CORS(srv.deps.CORSOrigins))

	r.Post("/webhook", srv.handleWebhook)
	r.Post("/notify", srv.handleNotify)
	r.Post("/questions", srv.handleSubmit)
	r.Get("/healthz", srv.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
}

// Routes returns a ready chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	Register(r, s)
	return r
}
