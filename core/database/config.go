package database

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Config holds database connection settings.
type Config struct {
	// Driver selects the row store backend: "postgres" or "memory".
	Driver         string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// InMemory reports whether rows live in process memory only.
func (c Config) InMemory() bool {
	return strings.EqualFold(strings.TrimSpace(c.Driver), "memory")
}

// DSN returns the keyword/value connection string understood by lib/pq.
// Values containing spaces or quotes are single-quoted.
func (c Config) DSN() string {
	pairs := [][2]string{
		{"user", c.User},
		{"password", c.Password},
		{"host", c.Host},
		{"port", c.Port},
		{"dbname", c.Name},
		{"sslmode", c.SSLMode},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p[0]+"="+dsnValue(p[1]))
	}
	return strings.Join(parts, " ")
}

// URL returns the connection string in URL form as golang-migrate expects it.
func (c Config) URL() string {
	return c.url(nil).String()
}

func (c Config) url(extra url.Values) *url.URL {
	q := url.Values{"sslmode": {c.SSLMode}}
	for k, vs := range extra {
		q[k] = vs
	}
	return &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: q.Encode(),
	}
}

func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return fmt.Sprintf("'%s'", r.Replace(v))
}
