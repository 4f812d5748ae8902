package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleYAML = `
telegram:
  token: from-file
http:
  port: 9090
database:
  driver: memory
relay:
  event_name: GoConf
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesEnvOverlayAndDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("RELAY_CONDITIONAL_CLEAR", "true")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q, env should win", cfg.Telegram.Token)
	}
	if !cfg.Relay.ConditionalClear {
		t.Fatal("RELAY_CONDITIONAL_CLEAR not applied")
	}
	if got := cfg.Addr(); got != "0.0.0.0:9090" {
		t.Fatalf("Addr = %q", got)
	}
	if cfg.HTTP.CORSOrigins != "*" || cfg.HTTP.ShutdownSeconds != 10 {
		t.Fatalf("http defaults = %+v", cfg.HTTP)
	}
	if cfg.Relay.Timezone != "Europe/Moscow" || cfg.Location().String() != "Europe/Moscow" {
		t.Fatalf("timezone = %q", cfg.Relay.Timezone)
	}
	if !cfg.Database.InMemory() {
		t.Fatalf("driver = %q", cfg.Database.Driver)
	}
}

func TestLoadToleratesMissingFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "t")
	t.Setenv("STORAGE_DRIVER", "memory")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Relay.EventName == "" {
		t.Fatal("event name default not applied")
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]struct {
		cfg  Config
		want string
	}{
		"no token": {
			cfg:  Config{},
			want: "token",
		},
		"webhook without url": {
			cfg:  Config{Telegram: TelegramConfig{Token: "t", RegisterWebhook: true}},
			want: "webhook_url",
		},
		"bad port": {
			cfg:  Config{Telegram: TelegramConfig{Token: "t"}, HTTP: HTTPConfig{Port: 70000}},
			want: "http.port",
		},
		"postgres without host": {
			cfg:  Config{Telegram: TelegramConfig{Token: "t"}},
			want: "database.host",
		},
		"unknown driver": {
			cfg: func() Config {
				c := Config{Telegram: TelegramConfig{Token: "t"}}
				c.Database.Driver = "sqlite"
				return c
			}(),
			want: "database.driver",
		},
		"bad timezone": {
			cfg: func() Config {
				c := Config{Telegram: TelegramConfig{Token: "t"}, Relay: RelayConfig{Timezone: "Mars/Olympus"}}
				c.Database.Driver = StorageMemory
				return c
			}(),
			want: "relay.timezone",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := tc.cfg
			err := Normalize(&cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Normalize error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestNormalizePostgresDefaults(t *testing.T) {
	cfg := Config{Telegram: TelegramConfig{Token: "t"}}
	cfg.Database.Host = "db"
	cfg.Database.Name = "qa"
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	db := cfg.Database
	if db.Driver != StoragePostgres || db.Port != "5432" || db.SSLMode != "disable" || db.MaxConnections != 10 || db.MigrationsDir != "migrations" {
		t.Fatalf("database defaults = %+v", db)
	}
}
