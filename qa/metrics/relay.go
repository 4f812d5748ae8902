package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		relayUpdatesTotal,
		answersTotal,
		notificationsTotal,
		questionsSubmittedTotal,
	)
}

var (
	relayUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qarelay_updates_total",
			Help: "Webhook updates by kind and resulting status.",
		},
		[]string{"kind", "status"},
	)

	answersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qarelay_answers_total",
			Help: "Answer attempts by outcome (recorded/already_answered/dangling).",
		},
		[]string{"outcome"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qarelay_notifications_total",
			Help: "Outbound notifications by kind (new_question/answer) and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	questionsSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qarelay_questions_submitted_total",
			Help: "Questions accepted through the API by anonymity.",
		},
		[]string{"anonymous"},
	)
)

// IncUpdate counts one routed webhook update.
func IncUpdate(kind, status string) {
	relayUpdatesTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

// IncAnswer counts one answer attempt.
func IncAnswer(outcome string) {
	answersTotal.WithLabelValues(norm(outcome)).Inc()
}

// IncNotification counts one notification attempt; outcome is "ok" or an error code.
func IncNotification(kind, outcome string) {
	notificationsTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}

// IncQuestionSubmitted counts one stored question.
func IncQuestionSubmitted(anonymous bool) {
	label := "false"
	if anonymous {
		label = "true"
	}
	questionsSubmittedTotal.WithLabelValues(label).Inc()
}
