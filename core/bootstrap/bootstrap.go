package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/qarelay/core/config"
	coredatabase "github.com/m3rciful/qarelay/core/database"
	"github.com/m3rciful/qarelay/core/logger"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config  *coreconfig.Config
	Modules Modules

	LoggerInit func(logger.Options) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
	// OpenStorage builds the row store; db is nil for the memory driver.
	OpenStorage func(db *sqlx.DB) Storage
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB      *sqlx.DB
	Storage Storage
}

// Close releases the database handle, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger, opens storage for the configured driver,
// applies migrations, and runs the seeders.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	if opts.OpenStorage == nil {
		return nil, fmt.Errorf("bootstrap: OpenStorage is required")
	}
	cfg := opts.Config

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg.Logging.Options()); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if !cfg.Database.InMemory() {
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		db, err := connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}

		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(cfg.Database); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		res.DB = db
	} else {
		logger.DB.Warn("memory storage selected; data is lost on restart",
			slog.String("event", "db.storage"),
			slog.String("db", coreconfig.StorageMemory),
		)
	}
	res.Storage = opts.OpenStorage(res.DB)

	for i, s := range opts.Modules.Seeders {
		start := time.Now()
		if err := s.Seed(ctx, res.Storage); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: seeder #%d failed: %w", i+1, err)
		}
		logger.SEED.Debug("seeder finished",
			slog.String("event", "seed.run"),
			slog.Int("seeder", i+1),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	}
	return res, nil
}
