package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/qarelay/core/logger"
)

const (
	pingTimeout  = 5 * time.Second
	readyTimeout = 30 * time.Second
	maxBackoff   = 2 * time.Second
)

// Connect waits until Postgres accepts connections, then opens the pooled handle.
func Connect(cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()
	start := time.Now()

	attempts, err := waitReady(ctx, cfg.DSN())
	if err != nil {
		logger.LogEvent(ctx, logger.DB, slog.LevelError, "db.connect",
			slog.String("host", cfg.Host),
			slog.String("db", cfg.Name),
			slog.Int("attempts", attempts),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(max(1, cfg.MaxConnections/2))
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancelPing := context.WithTimeout(ctx, pingTimeout)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	logger.LogEvent(ctx, logger.DB, slog.LevelInfo, "db.connect",
		slog.String("status", "ok"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Int("attempts", attempts),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", time.Since(start)),
	)
	return db, nil
}

// WaitForPostgres pings dsn with growing pauses until it answers or timeout passes.
func WaitForPostgres(dsn string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err := waitReady(ctx, dsn)
	return err
}

func waitReady(ctx context.Context, dsn string) (int, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	backoff := 250 * time.Millisecond
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return attempt, nil
		}
		logger.LogEvent(ctx, logger.DB, slog.LevelDebug, "db.wait",
			slog.Int("attempts", attempt),
			slog.Duration("backoff", backoff),
			slog.String("err", err.Error()),
		)
		select {
		case <-ctx.Done():
			return attempt, fmt.Errorf("database not ready after %d attempts: %w", attempt, err)
		case <-time.After(backoff):
		}
		backoff = min(2*backoff, maxBackoff)
	}
}
