// Package dbconfig builds the Postgres connection string shared by the draft
// server's outbox writer and the relay.
package dbconfig

import (
	"net"
	"net/url"
	"os"
	"strconv"
)

const defaultPort = 5432

// Config holds Postgres connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// URL overrides every field above when set.
	URL string
}

// NewConfigFromEnv reads DATABASE_URL and the DB_* variables.
func NewConfigFromEnv() Config {
	cfg := Config{
		Host:     lookup("DB_HOST", "localhost"),
		Port:     defaultPort,
		User:     lookup("DB_USER", "postgres"),
		Password: lookup("DB_PASSWORD", "postgres"),
		Database: lookup("DB_NAME", "campdraft"),
		SSLMode:  lookup("DB_SSLMODE", "disable"),
		URL:      os.Getenv("DATABASE_URL"),
	}
	if p, err := strconv.Atoi(os.Getenv("DB_PORT")); err == nil && p > 0 {
		cfg.Port = p
	}
	return cfg
}

// DSN returns the connection URL. Credentials are escaped.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

func lookup(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
