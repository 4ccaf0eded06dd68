// Package config loads the sync settings from the process environment
// (populated from .env by main) using Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Checkpoint backends.
const (
	BackendFile      = "file"
	BackendMongo     = "mongo"
	BackendSQLServer = "sqlserver"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
)

// Config holds all configuration for the application. It is built once at
// startup and passed to the components that need it.
type Config struct {
	// PostHogAPIKey is the personal API key sent as a bearer token.
	PostHogAPIKey string `mapstructure:"POSTHOG_API_KEY"`
	// PostHogHost is the PostHog instance base URL.
	PostHogHost string `mapstructure:"POSTHOG_HOST"`
	// PostHogProjectID selects /api/projects/{id}/events/.
	PostHogProjectID string `mapstructure:"POSTHOG_PROJECT_ID"`
	// PageLimit is the limit query parameter on the first page.
	PageLimit int `mapstructure:"POSTHOG_PAGE_LIMIT"`

	// ServerPushURL receives records built from posthog-node events.
	ServerPushURL string `mapstructure:"POWERBI_SERVER_PUSH_URL"`
	// BrowserPushURL receives records built from every other library.
	BrowserPushURL string `mapstructure:"POWERBI_BROWSER_PUSH_URL"`

	DefaultStart string        `mapstructure:"SYNC_DEFAULT_START"`
	Window       time.Duration `mapstructure:"SYNC_WINDOW"`
	BatchSize    int           `mapstructure:"BATCH_SIZE"`
	BatchPause   time.Duration `mapstructure:"BATCH_PAUSE"`

	FetchMaxRetries       int           `mapstructure:"FETCH_MAX_RETRIES"`
	FetchRateLimitBackoff time.Duration `mapstructure:"FETCH_RATE_LIMIT_BACKOFF"`
	FetchErrorBackoff     time.Duration `mapstructure:"FETCH_ERROR_BACKOFF"`
	HTTPTimeout           time.Duration `mapstructure:"HTTP_TIMEOUT"`
	MessageMaxLen         int           `mapstructure:"MESSAGE_MAX_LEN"`

	// CheckpointBackend is one of file, mongo, sqlserver, postgres, sqlite, redis.
	CheckpointBackend string `mapstructure:"CHECKPOINT_BACKEND"`
	CheckpointFile    string `mapstructure:"CHECKPOINT_FILE"`
	// CheckpointDSN is the connection string for every non-file backend.
	CheckpointDSN  string `mapstructure:"CHECKPOINT_DSN"`
	CheckpointName string `mapstructure:"CHECKPOINT_NAME"`
	MongoDatabase  string `mapstructure:"MONGO_DATABASE"`

	// PushgatewayURL enables pushing run metrics when set.
	PushgatewayURL string `mapstructure:"PUSHGATEWAY_URL"`
	LogFile        string `mapstructure:"LOG_FILE"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
}

var required = []string{
	"POSTHOG_API_KEY",
	"POSTHOG_PROJECT_ID",
	"POWERBI_SERVER_PUSH_URL",
	"POWERBI_BROWSER_PUSH_URL",
}

// LoadConfig builds Config from the environment. A missing required
// variable is a startup failure.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	for _, key := range required {
		v.SetDefault(key, "")
	}
	v.SetDefault("POSTHOG_HOST", "https://us.i.posthog.com")
	v.SetDefault("POSTHOG_PAGE_LIMIT", 1000)
	v.SetDefault("SYNC_DEFAULT_START", "2025-04-18T00:00:00Z")
	v.SetDefault("SYNC_WINDOW", "48h")
	v.SetDefault("BATCH_SIZE", 10000)
	v.SetDefault("BATCH_PAUSE", "1s")
	v.SetDefault("FETCH_MAX_RETRIES", 3)
	v.SetDefault("FETCH_RATE_LIMIT_BACKOFF", "30s")
	v.SetDefault("FETCH_ERROR_BACKOFF", "5s")
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("MESSAGE_MAX_LEN", 4000)
	v.SetDefault("CHECKPOINT_BACKEND", BackendFile)
	v.SetDefault("CHECKPOINT_FILE", "last_processed_time.txt")
	v.SetDefault("CHECKPOINT_DSN", "")
	v.SetDefault("CHECKPOINT_NAME", "posthog-powerbi")
	v.SetDefault("MONGO_DATABASE", "eventsync")
	v.SetDefault("PUSHGATEWAY_URL", "")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_LEVEL", "info")

	for _, key := range required {
		if strings.TrimSpace(v.GetString(key)) == "" {
			return nil, fmt.Errorf("%s environment variable not set", key)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := time.Parse(time.RFC3339, c.DefaultStart); err != nil {
		return fmt.Errorf("SYNC_DEFAULT_START must be RFC3339: %w", err)
	}
	if c.Window <= 0 {
		return fmt.Errorf("SYNC_WINDOW must be positive, got %s", c.Window)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.FetchMaxRetries <= 0 {
		return fmt.Errorf("FETCH_MAX_RETRIES must be positive, got %d", c.FetchMaxRetries)
	}
	if c.MessageMaxLen <= 3 {
		return fmt.Errorf("MESSAGE_MAX_LEN must be greater than 3, got %d", c.MessageMaxLen)
	}
	switch c.CheckpointBackend {
	case BackendFile:
		if c.CheckpointFile == "" {
			return fmt.Errorf("CHECKPOINT_FILE environment variable not set")
		}
	case BackendMongo, BackendSQLServer, BackendPostgres, BackendSQLite, BackendRedis:
		if c.CheckpointDSN == "" {
			return fmt.Errorf("CHECKPOINT_DSN environment variable not set (backend %s)", c.CheckpointBackend)
		}
	default:
		return fmt.Errorf("unsupported CHECKPOINT_BACKEND: %s", c.CheckpointBackend)
	}
	return nil
}

// DefaultStartMillis returns SYNC_DEFAULT_START as epoch milliseconds.
func (c *Config) DefaultStartMillis() int64 {
	t, err := time.Parse(time.RFC3339, c.DefaultStart)
	if err != nil {
		return time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC).UnixMilli()
	}
	return t.UnixMilli()
}

// EventsURL is the first-page URL of the events API.
func (c *Config) EventsURL() string {
	return fmt.Sprintf("%s/api/projects/%s/events/", strings.TrimSuffix(c.PostHogHost, "/"), c.PostHogProjectID)
}
