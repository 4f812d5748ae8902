package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/m3rciful/qarelay/core/logger"
	"github.com/m3rciful/qarelay/qa/metrics"
)

// RequestIDHeader carries the correlation id in and out.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a rid to the request context, reusing a sane inbound one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := logger.SanitizeLimit(r.Header.Get(RequestIDHeader), 64)
		if rid == "" || strings.ContainsAny(rid, " \t") {
			rid = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, rid)
		ctx := logger.WithRID(r.Context(), rid)
		ctx = logger.WithLogger(ctx, logger.HTTP)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessLog writes one http.request line per request and counts it.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		route := routePattern(r)
		metrics.IncHTTPRequest(route, code)

		level := slog.LevelInfo
		switch {
		case code >= 500:
			level = slog.LevelError
		case code >= 400:
			level = slog.LevelWarn
		case route == "/healthz" || route == "/metrics":
			level = slog.LevelDebug
		}
		logger.LogEvent(r.Context(), logger.HTTP, level, "http.request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("http_code", code),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// Recover turns a handler panic into a logged error response. The webhook
// still answers 200 so Telegram does not redeliver.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.LogEvent(r.Context(), logger.HTTP, slog.LevelError, "http.panic",
				slog.String("route", r.URL.Path),
				slog.String("err", fmt.Sprint(rec)),
				slog.String("cause", string(debug.Stack())),
			)
			code := http.StatusInternalServerError
			if r.URL.Path == "/webhook" {
				code = http.StatusOK
			}
			writeError(w, code, "internal error")
		}()
		next.ServeHTTP(w, r)
	})
}

// CORS answers preflights and sets allow headers for the configured origins.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	origins := parseOrigins(allowedOrigins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allow := ""
			if len(origins) == 0 || origins["*"] {
				allow = "*"
			} else if origin != "" && origins[origin] {
				allow = origin
				w.Header().Add("Vary", "Origin")
			}
			if allow != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allow)
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
				h.Set("Access-Control-Max-Age", "86400")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseOrigins(s string) map[string]bool {
	m := make(map[string]bool)
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			m[o] = true
		}
	}
	return m
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
