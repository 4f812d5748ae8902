package router

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/qarelay/core/logger"
)

// ErrorCoder is implemented by code mappers passed to the router.
type ErrorCoder func(error) string

func (rt *Router) handleWithSummary(ctx context.Context, handlerName string, start time.Time, fn func(context.Context) (Status, error)) (Status, error) {
	ctx = logger.WithHandler(ctx, handlerName)
	status, err := fn(ctx)
	rt.logHandlerSummary(ctx, handlerName, start, status, err)
	return status, err
}

func (rt *Router) logHandlerSummary(ctx context.Context, handlerName string, start time.Time, status Status, err error) {
	outcome := "ok"
	statusText := string(status)
	level := slog.LevelInfo
	if err != nil {
		outcome = "fail"
		level = slog.LevelError
		if statusText == "" {
			statusText = "error"
		}
	}
	if status == StatusIgnored && err == nil {
		outcome = "skip"
	}
	attrs := []slog.Attr{
		slog.String("status", statusText),
		slog.String("handler", handlerName),
		slog.String("outcome", outcome),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", rt.errorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.Relay, level, "handler.handled", attrs...)
}

func (rt *Router) errorCode(err error) string {
	if rt.codeOf != nil {
		if code := rt.codeOf(err); code != "" {
			return code
		}
	}
	return "INTERNAL"
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}
