package telegram

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strings"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// errorClass pairs a bucket name with its matcher. Order matters: the first
// match wins, so transport causes are checked before API codes.
type errorClass struct {
	name  string
	match func(error) bool
}

var errorClasses = []errorClass{
	{"timeout", isTimeout},
	{"cancelled", func(err error) bool { return errors.Is(err, context.Canceled) }},
	{"dns", func(err error) bool { return errors.As(err, new(*net.DNSError)) }},
	{"dial", func(err error) bool {
		var op *net.OpError
		return errors.As(err, &op) && op.Op == "dial"
	}},
	{"tls", func(err error) bool { return errors.As(err, new(tls.AlertError)) }},
	{"rate_limited", func(err error) bool { return StatusCode(err) == http.StatusTooManyRequests }},
	{"http_5xx", func(err error) bool { return StatusCode(err) >= 500 }},
	{"http_4xx", func(err error) bool { return StatusCode(err) >= 400 }},
}

// ClassifyError buckets an API call failure for logs and metrics.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range errorClasses {
		if c.match(err) {
			return c.name
		}
	}
	return "unknown"
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// SanitizeError renders err with bot tokens redacted.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// StatusCode extracts the Bot API error code carried by err, or 0.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return http.StatusTooManyRequests
	}

	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}
	return 0
}

// IsChatNotFound reports whether Telegram rejected the chat identifier.
func IsChatNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, tele.ErrChatNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "chat not found") || strings.Contains(msg, "chat_id is empty")
}
