package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/qarelay/core/config"
	"github.com/m3rciful/qarelay/core/logger"
)

const defaultConfigEnv = "CONFIG_PATH"

// App is the minimal surface the runner needs from an assembled service.
type App interface {
	Handler() http.Handler
	// Start runs once the listener is bound, e.g. to register the webhook.
	Start(ctx context.Context) error
	Close() error
}

// Options describe how to load configuration, bootstrap the app, and serve it.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (*coreconfig.Config, error)
	Bootstrap  func(ctx context.Context, cfg *coreconfig.Config) (App, error)

	ShutdownLogger func() error
}

// Run loads configuration, bootstraps the app, and serves HTTP until a
// termination signal arrives.
func Run(opts Options) error {
	if opts.LoadConfig == nil || opts.Bootstrap == nil {
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}
	cfgPath, err := configPath(opts)
	if err != nil {
		return err
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := opts.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	app, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	defer flushLogger(opts.ShutdownLogger)
	defer func() {
		if err := app.Close(); err != nil {
			logger.LogEvent(ctx, logger.App, slog.LevelWarn, "shutdown", slog.String("err", err.Error()))
		}
	}()

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("cmd: listen %s: %w", cfg.Addr(), err)
	}
	grace := time.Duration(cfg.HTTP.ShutdownSeconds) * time.Second
	return serve(ctx, ln, app, grace, startedAt)
}

// serve runs app on ln until ctx ends or the server fails, then drains
// in-flight requests for at most grace.
func serve(ctx context.Context, ln net.Listener, app App, grace time.Duration, startedAt time.Time) error {
	srv := &http.Server{
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	if err := app.Start(ctx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("cmd: start: %w", err)
	}
	logger.LogEvent(ctx, logger.App, slog.LevelInfo, "ready",
		slog.String("listen", ln.Addr().String()),
		slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
	)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("cmd: http server: %w", err)
		}
		return nil
	}

	logger.LogEvent(context.Background(), logger.App, slog.LevelInfo, "shutdown",
		slog.Duration("grace", grace),
	)
	drainCtx, stop := context.WithTimeout(context.Background(), grace)
	defer stop()
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("cmd: graceful shutdown: %w", err)
	}
	return nil
}

func configPath(opts Options) (string, error) {
	env := opts.ConfigEnvVar
	if env == "" {
		env = defaultConfigEnv
	}
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	if opts.DefaultConfigPath != "" {
		return opts.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
}

func flushLogger(shutdown func() error) {
	if shutdown == nil {
		shutdown = logger.Shutdown
	}
	if err := shutdown(); err != nil {
		log.Printf("logger shutdown error: %v", err)
	}
}
