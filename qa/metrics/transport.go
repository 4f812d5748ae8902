package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		telegramCallsLatencyMs,
		httpRequestsTotal,
	)
}

var (
	telegramCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qarelay_telegram_calls_latency_ms",
			Help:    "Bot API call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"method", "success"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qarelay_http_requests_total",
			Help: "Inbound HTTP requests by route pattern and status code.",
		},
		[]string{"route", "code"},
	)
)

// ObserveTelegramCall records the latency of one Bot API call.
func ObserveTelegramCall(method string, took time.Duration, success bool) {
	telegramCallsLatencyMs.WithLabelValues(norm(method), strconv.FormatBool(success)).
		Observe(float64(took.Milliseconds()))
}

// IncHTTPRequest counts one served HTTP request.
func IncHTTPRequest(route string, code int) {
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
