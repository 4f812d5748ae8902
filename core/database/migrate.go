package database

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/qarelay/core/logger"
)

// MigrationsTable records the applied schema version.
const MigrationsTable = "schema_migrations"

// RunMigrations applies all pending up migrations from cfg.MigrationsDir.
// A database left dirty by a failed run is reported, never forced.
func RunMigrations(cfg Config) error {
	if err := WaitForPostgres(cfg.DSN(), readyTimeout); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	files := listMigrationFiles(dir)
	if len(files) == 0 {
		return fmt.Errorf("no *.up.sql migrations in %s", dir)
	}
	preview, truncated := logger.SummarizeStrings(files, 6)
	logger.MIG.Debug("migrations resolved",
		slog.String("event", "db.migrate.resolve"),
		slog.String("path", dir),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	m, err := migrate.New("file://"+filepath.ToSlash(dir), migrationURL(cfg))
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.MIG.Warn("close failed",
				slog.String("event", "db.migrate"),
				slog.String("err", errors.Join(srcErr, dbErr).Error()),
			)
		}
	}()

	from, err := currentVersion(m)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "db.migrate"),
			slog.String("outcome", "fail"),
			slog.Uint64("from_ver", uint64(from)),
			slog.Duration("duration", time.Since(start)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}
	to, err := currentVersion(m)
	if err != nil {
		return err
	}

	applied := selectApplied(files, uint64(from), uint64(to))
	outcome := "ok"
	if len(applied) == 0 {
		outcome = "skip"
	}
	logger.MIG.Info("migrations applied",
		slog.String("event", "db.migrate"),
		slog.String("outcome", outcome),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// currentVersion returns the applied version, 0 on a fresh database.
func currentVersion(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return v, fmt.Errorf("schema version %d is dirty; fix it by hand and run migrate force", v)
	}
	return v, nil
}

func migrationURL(cfg Config) string {
	return cfg.url(url.Values{"x-migrations-table": {MigrationsTable}}).String()
}

// listMigrationFiles returns the *.up.sql names in dir, lowest version first.
func listMigrationFiles(dir string) []string {
	paths, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil || len(paths) == 0 {
		return nil
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(parseVersion(a), parseVersion(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return names
}

// parseVersion reads the numeric prefix of a migration file name.
func parseVersion(name string) uint64 {
	digits := name
	end := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' })
	if end >= 0 {
		digits = digits[:end]
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// selectApplied lists files with versions in (from, to].
func selectApplied(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		v := parseVersion(f)
		if v <= from || v > to {
			continue
		}
		out = append(out, f)
	}
	return out
}
