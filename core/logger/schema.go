package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// status values emitted by the relay and HTTP layers.
var knownStatus = map[string]struct{}{
	"ok":                 {},
	"fail":               {},
	"error":              {},
	"ignored":            {},
	"callback_processed": {},
	"answer_processed":   {},
	"unauthorized":       {},
	"cancelled":          {},
}

var knownOutcome = map[string]struct{}{
	"ok":   {},
	"fail": {},
	"skip": {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeEnum(value string, known map[string]struct{}) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", false
	}
	_, ok := known[value]
	return value, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"method",
	"route",
	"http_code",
	"update_id",
	"update_kind",
	"user_id",
	"chat_id",
	"handler",
	"op",
	"outcome",
	"duration_ms",
	"question_id",
	"speaker_id",
	"anonymous",
	"delivered",
	"cleared",
	"public_url",
	"listen",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"attempts",
	"backoff_ms",
}
