package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status renders an error as the status field: ok, cancelled, or error.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "error"
}

// RoundMS rounds d to whole milliseconds; negative values become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values and appends "+N more" when
// some were left out. The bool reports truncation.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	if limit <= 0 {
		return fmt.Sprintf("+%d more", len(values)), true
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(values[:limit], ", "), len(values)-limit), true
}
