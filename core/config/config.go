package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/m3rciful/qarelay/core/database"
	"github.com/m3rciful/qarelay/core/logger"
)

// TelegramConfig holds bot API settings.
type TelegramConfig struct {
	Token  string `yaml:"token" envconfig:"BOT_TOKEN"`
	APIURL string `yaml:"api_url" envconfig:"TELEGRAM_API_URL"`
	// WebhookURL is the public URL Telegram delivers updates to.
	WebhookURL string `yaml:"webhook_url" envconfig:"TELEGRAM_WEBHOOK_URL"`
	// WebhookSecret is echoed by Telegram in X-Telegram-Bot-Api-Secret-Token.
	WebhookSecret   string `yaml:"webhook_secret" envconfig:"TELEGRAM_WEBHOOK_SECRET"`
	RegisterWebhook bool   `yaml:"register_webhook" envconfig:"TELEGRAM_REGISTER_WEBHOOK"`
	SetCommands     bool   `yaml:"set_commands" envconfig:"TELEGRAM_SET_COMMANDS"`
}

// HTTPConfig configures the inbound HTTP server.
type HTTPConfig struct {
	Listen          string `yaml:"listen" envconfig:"HTTP_LISTEN"`
	Port            int    `yaml:"port" envconfig:"HTTP_PORT"`
	CORSOrigins     string `yaml:"cors_origins" envconfig:"HTTP_CORS_ORIGINS"`
	ShutdownSeconds int    `yaml:"shutdown_seconds" envconfig:"HTTP_SHUTDOWN_SECONDS"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	File        string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// Options converts the section into logger options.
func (l LoggingConfig) Options() logger.Options {
	return logger.Options{
		Level:       l.Level,
		Format:      l.Format,
		KeysOrder:   l.KeysOrder,
		DebugSample: l.DebugSample,
		Dir:         l.Dir,
		File:        l.File,
		Profile:     l.Profile,
	}
}

// RelayConfig tunes the Q&A relay behaviour.
type RelayConfig struct {
	// Timezone is the reference zone for every human-facing timestamp.
	Timezone  string `yaml:"timezone" envconfig:"RELAY_TIMEZONE"`
	EventName string `yaml:"event_name" envconfig:"RELAY_EVENT_NAME"`
	// ConditionalClear clears the pending pointer only if it still references the answered question.
	ConditionalClear bool `yaml:"conditional_clear" envconfig:"RELAY_CONDITIONAL_CLEAR"`
}

// SeedConfig points at optional reference data loaded at startup.
type SeedConfig struct {
	SpeakersFile string `yaml:"speakers_file" envconfig:"SEED_SPEAKERS_FILE"`
}

const (
	// StorageMemory keeps rows in process memory; intended for local runs.
	StorageMemory = "memory"
	// StoragePostgres stores rows in PostgreSQL.
	StoragePostgres = "postgres"
)

// Config aggregates the service configuration.
type Config struct {
	Telegram TelegramConfig  `yaml:"telegram"`
	HTTP     HTTPConfig      `yaml:"http"`
	Database database.Config `yaml:"database"`
	Logging  LoggingConfig   `yaml:"logging"`
	Relay    RelayConfig     `yaml:"relay"`
	Seed     SeedConfig      `yaml:"seed"`
}

// Load reads configuration from a YAML file and environment variables.
// A missing file is tolerated so the service can run from env alone.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.Telegram.RegisterWebhook && strings.TrimSpace(cfg.Telegram.WebhookURL) == "" {
		return fmt.Errorf("telegram.webhook_url is required when telegram.register_webhook is set")
	}

	if strings.TrimSpace(cfg.HTTP.Listen) == "" {
		cfg.HTTP.Listen = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.Port < 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be within 1..65535")
	}
	if strings.TrimSpace(cfg.HTTP.CORSOrigins) == "" {
		cfg.HTTP.CORSOrigins = "*"
	}
	if cfg.HTTP.ShutdownSeconds <= 0 {
		cfg.HTTP.ShutdownSeconds = 10
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if driver == "" {
		driver = StoragePostgres
	}
	switch driver {
	case StoragePostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres driver")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 10
		}
		if cfg.Database.MigrationsDir == "" {
			cfg.Database.MigrationsDir = "migrations"
		}
	case StorageMemory:
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, memory", cfg.Database.Driver)
	}
	cfg.Database.Driver = driver

	if strings.TrimSpace(cfg.Relay.Timezone) == "" {
		cfg.Relay.Timezone = "Europe/Moscow"
	}
	if _, err := time.LoadLocation(cfg.Relay.Timezone); err != nil {
		return fmt.Errorf("invalid relay.timezone %q: %w", cfg.Relay.Timezone, err)
	}
	if strings.TrimSpace(cfg.Relay.EventName) == "" {
		cfg.Relay.EventName = "SecretPointConf2025"
	}
	return nil
}

// Location returns the reference timezone. Normalize guarantees it resolves.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Relay.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.HTTP.Listen, strconv.Itoa(c.HTTP.Port))
}
