package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/qarelay/core/config"
	coredatabase "github.com/m3rciful/qarelay/core/database"
	"github.com/m3rciful/qarelay/core/logger"
)

func memoryConfig() *coreconfig.Config {
	cfg := &coreconfig.Config{}
	cfg.Database.Driver = coreconfig.StorageMemory
	return cfg
}

func TestRunMemorySkipsDatabase(t *testing.T) {
	var seeded []Storage
	opts := Options{
		Config:     memoryConfig(),
		LoggerInit: func(logger.Options) error { return nil },
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			t.Fatal("connect must not run for the memory driver")
			return nil, nil
		},
		OpenStorage: func(db *sqlx.DB) Storage {
			if db != nil {
				t.Fatal("memory storage gets no db")
			}
			return "mem"
		},
		Modules: Modules{Seeders: []Seeder{
			SeederFunc(func(_ context.Context, s Storage) error {
				seeded = append(seeded, s)
				return nil
			}),
		}},
	}
	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Storage != "mem" || res.DB != nil || len(seeded) != 1 || seeded[0] != "mem" {
		t.Fatalf("result = %+v seeded = %v", res, seeded)
	}
	if err := res.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRunPropagatesFailures(t *testing.T) {
	boom := errors.New("boom")

	_, err := Run(context.Background(), Options{
		Config:      memoryConfig(),
		LoggerInit:  func(logger.Options) error { return boom },
		OpenStorage: func(*sqlx.DB) Storage { return nil },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("logger failure: %v", err)
	}

	cfg := memoryConfig()
	cfg.Database.Driver = coreconfig.StoragePostgres
	_, err = Run(context.Background(), Options{
		Config:      cfg,
		LoggerInit:  func(logger.Options) error { return nil },
		Connect:     func(coredatabase.Config) (*sqlx.DB, error) { return nil, boom },
		OpenStorage: func(*sqlx.DB) Storage { return nil },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("connect failure: %v", err)
	}

	_, err = Run(context.Background(), Options{
		Config:      memoryConfig(),
		LoggerInit:  func(logger.Options) error { return nil },
		OpenStorage: func(*sqlx.DB) Storage { return nil },
		Modules:     Modules{Seeders: []Seeder{SeederFunc(func(context.Context, Storage) error { return boom })}},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("seeder failure: %v", err)
	}
}
