package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/qarelay/core/buildinfo"
)

// Options configures InitLogger. Empty fields fall back to defaults.
type Options struct {
	Level       string
	Format      string
	KeysOrder   string
	DebugSample string
	Dir         string
	File        string
	Profile     string
}

const (
	sinkBufferSize = 64 * 1024
	defaultProfile = "prod"
)

var (
	initOnce sync.Once
	closed   atomic.Bool

	logWriter *asyncWriter
	logFile   *os.File

	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(1, 50)
	traceOverride atomic.Bool

	discard = slog.New(slog.NewTextHandler(io.Discard, nil))

	// L is the base logger. It discards output until InitLogger runs.
	L = discard

	// App logs process lifecycle events.
	App = discard
	// HTTP logs inbound API requests.
	HTTP = discard
	// Relay logs webhook update handling.
	Relay = discard
	// Notify logs speaker notifications and question submissions.
	Notify = discard
	// TG logs Telegram Bot API calls.
	TG = discard
	// DB logs database connectivity.
	DB = discard
	// MIG logs schema migrations.
	MIG = discard
	// SEED logs reference data seeding.
	SEED = discard
)

// components maps each package-level logger to its component attribute.
var components = []struct {
	dst  **slog.Logger
	name string
}{
	{&App, "app"},
	{&HTTP, "http"},
	{&Relay, "relay"},
	{&Notify, "notify"},
	{&TG, "tg"},
	{&DB, "db"},
	{&MIG, "db.migrate"},
	{&SEED, "db.seed"},
}

var formats = map[string]logFormat{
	"json":   formatJSON,
	"kv":     formatKV,
	"text":   formatKV,
	"pretty": formatKV,
}

// InitLogger configures the global structured logger. Only the first call
// has effect; later calls return the first call's error.
func InitLogger(opts Options) error {
	var initErr error
	initOnce.Do(func() {
		initErr = install(opts)
	})
	return initErr
}

func install(opts Options) error {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return err
	}
	f, err := openLogFile(opts.Dir, opts.File)
	if err != nil {
		return err
	}
	sinks := []io.Writer{os.Stdout}
	if f != nil {
		logFile = f
		sinks = append(sinks, f)
	}

	levelVar.Set(level)
	debugSampler.Set(parseDebugSample(opts.DebugSample))
	traceOverride.Store(envFlag("TRACE") || envFlag("LOG_TRACE"))

	logWriter = newAsyncWriter(sinks, sinkBufferSize)
	L = slog.New(newStructuredHandler(handlerConfig{
		level:    &levelVar,
		writer:   logWriter,
		format:   pickFormat(opts.Format, opts.Profile),
		keyOrder: parseKeyOrder(opts.KeysOrder),
	}))
	slog.SetDefault(L)

	for _, c := range components {
		*c.dst = Component(c.name)
	}

	profile := strings.ToLower(strings.TrimSpace(opts.Profile))
	if profile == "" {
		profile = defaultProfile
	}
	LogEvent(context.Background(), App, slog.LevelInfo, "startup",
		slog.String("go_version", runtime.Version()),
		slog.String("version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", profile),
		slog.String("log_level", level.String()),
	)
	return nil
}

// Shutdown flushes buffered log output and closes the log file. It is safe
// to call more than once.
func Shutdown() error {
	if closed.Swap(true) {
		return nil
	}
	var errs []error
	if logWriter != nil {
		errs = append(errs, logWriter.Flush(), logWriter.Close())
	}
	if logFile != nil {
		errs = append(errs, logFile.Close())
	}
	return errors.Join(errs...)
}

// LogEvent writes a record with the event attribute placed first.
// A nil logger falls back to the context logger.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns L tagged with a component attribute.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name != "" {
		return L.With("component", name)
	}
	return L
}

// ShouldSampleDebug reports whether debug details of a high-volume event
// should be logged. TRACE=1 in the environment disables sampling.
func ShouldSampleDebug() bool {
	return traceOverride.Load() || debugSampler.Allow()
}

func parseLevel(raw string) (slog.Level, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logger: invalid level %q", raw)
	}
	return lvl, nil
}

func pickFormat(format, profile string) logFormat {
	if f, ok := formats[strings.ToLower(strings.TrimSpace(format))]; ok {
		return f
	}
	switch strings.ToLower(strings.TrimSpace(profile)) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

func parseKeyOrder(raw string) []string {
	var order []string
	if raw = strings.TrimSpace(raw); raw != "default" {
		for _, key := range strings.Split(raw, ",") {
			if key = strings.TrimSpace(key); key != "" {
				order = append(order, key)
			}
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

// openLogFile opens dir/file for appending. It returns nil when either part
// is empty.
func openLogFile(dir, file string) (*os.File, error) {
	dir, file = strings.TrimSpace(dir), strings.TrimSpace(file)
	if dir == "" || file == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, file), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

// parseDebugSample turns a ratio string into a sampler setting. Empty input
// means 1/50; "0" disables debug sampling.
func parseDebugSample(spec string) (int, int) {
	if spec = strings.TrimSpace(spec); spec == "" {
		return 1, 50
	}
	num, den := parseRatioSpec(spec)
	switch {
	case num == 0 && den == 0:
		return 0, 0
	case num <= 0 || den <= 0:
		return 1, 50
	}
	return num, den
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
