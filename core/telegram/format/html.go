package format

import (
	"strings"
	"time"
)

// TimestampLayout renders human-facing timestamps as "day.month.year hour:minute".
const TimestampLayout = "02.01.2006 15:04"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// EscapeHTML escapes text for Telegram's HTML parse mode.
func EscapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}

// Timestamp renders t in loc using TimestampLayout. A nil loc means UTC.
func Timestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimestampLayout)
}
