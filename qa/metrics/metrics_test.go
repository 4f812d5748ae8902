package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(relayUpdatesTotal.WithLabelValues("callback", "callback_processed"))
	IncUpdate(" Callback ", "CALLBACK_PROCESSED")
	after := testutil.ToFloat64(relayUpdatesTotal.WithLabelValues("callback", "callback_processed"))
	if after-before != 1 {
		t.Fatalf("update counter delta = %v, want 1", after-before)
	}

	IncNotification("new_question", "")
	if got := testutil.ToFloat64(notificationsTotal.WithLabelValues("new_question", "unknown")); got < 1 {
		t.Fatalf("blank outcome should be counted as unknown, got %v", got)
	}

	IncQuestionSubmitted(true)
	if got := testutil.ToFloat64(questionsSubmittedTotal.WithLabelValues("true")); got < 1 {
		t.Fatalf("submitted counter = %v", got)
	}

	ObserveTelegramCall("sendMessage", 120*time.Millisecond, true)
	if n := testutil.CollectAndCount(telegramCallsLatencyMs); n == 0 {
		t.Fatal("latency histogram has no series")
	}
}

func TestMustRegisterIdempotent(t *testing.T) {
	MustRegister()
	MustRegister()
	if len(collectors) != 6 {
		t.Fatalf("collectors = %d, want 6", len(collectors))
	}
}
