package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	os.Clearenv()
	os.Setenv("POSTHOG_API_KEY", "phx_test")
	os.Setenv("POSTHOG_PROJECT_ID", "148940")
	os.Setenv("POWERBI_SERVER_PUSH_URL", "https://powerbi.example/server")
	os.Setenv("POWERBI_BROWSER_PUSH_URL", "https://powerbi.example/browser")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.PostHogHost != "https://us.i.posthog.com" {
		t.Errorf("PostHogHost = %q", cfg.PostHogHost)
	}
	if cfg.Window != 48*time.Hour {
		t.Errorf("Window = %s, want 48h", cfg.Window)
	}
	if cfg.BatchSize != 10000 {
		t.Errorf("BatchSize = %d, want 10000", cfg.BatchSize)
	}
	if cfg.FetchMaxRetries != 3 {
		t.Errorf("FetchMaxRetries = %d, want 3", cfg.FetchMaxRetries)
	}
	if cfg.FetchRateLimitBackoff != 30*time.Second || cfg.FetchErrorBackoff != 5*time.Second {
		t.Errorf("backoffs = %s / %s", cfg.FetchRateLimitBackoff, cfg.FetchErrorBackoff)
	}
	if cfg.MessageMaxLen != 4000 {
		t.Errorf("MessageMaxLen = %d", cfg.MessageMaxLen)
	}
	if cfg.CheckpointBackend != BackendFile || cfg.CheckpointFile != "last_processed_time.txt" {
		t.Errorf("checkpoint = %s %s", cfg.CheckpointBackend, cfg.CheckpointFile)
	}
	want := time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC).UnixMilli()
	if cfg.DefaultStartMillis() != want {
		t.Errorf("DefaultStartMillis = %d, want %d", cfg.DefaultStartMillis(), want)
	}
	if cfg.EventsURL() != "https://us.i.posthog.com/api/projects/148940/events/" {
		t.Errorf("EventsURL = %q", cfg.EventsURL())
	}
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	for _, key := range required {
		setRequired(t)
		os.Unsetenv(key)

		_, err := LoadConfig()
		if err == nil {
			t.Fatalf("expected error when %s is missing", key)
		}
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q should name %s", err, key)
		}
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	setRequired(t)
	os.Setenv("SYNC_WINDOW", "6h")
	os.Setenv("BATCH_SIZE", "500")
	os.Setenv("POSTHOG_HOST", "https://eu.i.posthog.com/")
	os.Setenv("CHECKPOINT_BACKEND", "sqlite")
	os.Setenv("CHECKPOINT_DSN", "/tmp/eventsync.db")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Window != 6*time.Hour {
		t.Errorf("Window = %s", cfg.Window)
	}
	if cfg.BatchSize != 500 {
		t.Errorf("BatchSize = %d", cfg.BatchSize)
	}
	if cfg.EventsURL() != "https://eu.i.posthog.com/api/projects/148940/events/" {
		t.Errorf("EventsURL = %q", cfg.EventsURL())
	}
	if cfg.CheckpointBackend != BackendSQLite {
		t.Errorf("CheckpointBackend = %q", cfg.CheckpointBackend)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"SYNC_DEFAULT_START": "April 18",
		"BATCH_SIZE":         "0",
		"CHECKPOINT_BACKEND": "etcd",
	}
	for key, val := range cases {
		setRequired(t)
		os.Setenv(key, val)
		if _, err := LoadConfig(); err == nil {
			t.Errorf("expected error for %s=%s", key, val)
		}
	}

	setRequired(t)
	os.Setenv("CHECKPOINT_BACKEND", "redis")
	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for redis backend without CHECKPOINT_DSN")
	}
}
