// Package config loads the draft server and relay settings from an optional
// YAML file with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

// EventsMode selects where committed draft events go besides the websocket
// gateway.
type EventsMode string

const (
	EventsModeLocal     EventsMode = "local"     // gateway only
	EventsModeJetStream EventsMode = "jetstream" // gateway + direct JetStream
	EventsModeOutbox    EventsMode = "outbox"    // gateway + Postgres outbox
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Engine EngineConfig `yaml:"engine"`
	Events EventsConfig `yaml:"events"`
	NATS   NATSConfig   `yaml:"nats"`
	Outbox OutboxConfig `yaml:"outbox"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type EngineConfig struct {
	DefaultRoundsPerParticipant int  `yaml:"default_rounds_per_participant"`
	DefaultTimePerPickSec       int  `yaml:"default_time_per_pick_sec"`
	CreditCancelled             bool `yaml:"credit_cancelled"`
	ExpiryWorkers               int  `yaml:"expiry_workers"`
	// PublishTimeout bounds each event publish made while a draft is locked.
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

type EventsConfig struct {
	Mode EventsMode `yaml:"mode"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	StreamName    string `yaml:"stream_name"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type OutboxConfig struct {
	NotifyChannel    string        `yaml:"notify_channel"`
	FallbackInterval time.Duration `yaml:"fallback_interval"`
	BatchSize        int           `yaml:"batch_size"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Engine: EngineConfig{
			DefaultRoundsPerParticipant: 1,
			DefaultTimePerPickSec:       60,
			ExpiryWorkers:               4,
			PublishTimeout:              5 * time.Second,
		},
		Events: EventsConfig{Mode: EventsModeLocal},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			StreamName:    "DRAFT_EVENTS",
			SubjectPrefix: "draft.events",
		},
		Outbox: OutboxConfig{
			NotifyChannel:    "draft_outbox_events",
			FallbackInterval: 30 * time.Second,
			BatchSize:        100,
			MaxRetries:       5,
			RetryDelay:       200 * time.Millisecond,
		},
	}
}

// Load reads CONFIG_PATH (or config.yaml) over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load() (Config, error) {
	path := getEnv("CONFIG_PATH", DefaultPath)
	cfg, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// LoadFile decodes path over the defaults without applying the environment.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.Events.Mode = EventsMode(strings.ToLower(getEnv("EVENTS_MODE", string(c.Events.Mode))))
	c.Outbox.FallbackInterval = getEnvAsDuration("FALLBACK_INTERVAL", c.Outbox.FallbackInterval)
	c.Engine.ExpiryWorkers = getEnvAsInt("EXPIRY_WORKERS", c.Engine.ExpiryWorkers)
}

func (c Config) Validate() error {
	switch c.Events.Mode {
	case EventsModeLocal, EventsModeJetStream, EventsModeOutbox:
	default:
		return fmt.Errorf("unknown events mode %q", c.Events.Mode)
	}
	if c.Engine.DefaultRoundsPerParticipant < 1 {
		return fmt.Errorf("engine.default_rounds_per_participant must be at least 1")
	}
	if c.Engine.DefaultTimePerPickSec < 1 {
		return fmt.Errorf("engine.default_time_per_pick_sec must be at least 1")
	}
	if c.Engine.PublishTimeout <= 0 {
		return fmt.Errorf("engine.publish_timeout must be positive")
	}
	if c.Outbox.BatchSize < 1 {
		return fmt.Errorf("outbox.batch_size must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
