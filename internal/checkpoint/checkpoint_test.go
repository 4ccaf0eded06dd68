package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BartekS5/eventsync/internal/config"
	"github.com/BartekS5/eventsync/pkg/database"
)

var defaultStart = time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC).UnixMilli()

func TestParseLine(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1744934400000", 1744934400000, false},
		{"1744934400000  # 2025-04-18 00:00:00 UTC [2025-04-18 05:30:00 IST]\n", 1744934400000, false},
		{"  42\tjunk", 42, false},
		{"", 0, true},
		{"   \n", 0, true},
		{"# comment only", 0, true},
		{"12abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLine(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLine(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLine(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatLine(t *testing.T) {
	got := FormatLine(defaultStart)
	want := "1744934400000  # 2025-04-18 00:00:00 UTC [2025-04-18 05:30:00 IST]\n"
	if got != want {
		t.Errorf("FormatLine = %q, want %q", got, want)
	}
}

func TestFileStore_AbsentReturnsDefault(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "last_processed_time.txt"), defaultStart)
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != defaultStart {
		t.Errorf("Load = %d, want default %d", got, defaultStart)
	}
}

func TestFileStore_CorruptReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_processed_time.txt")
	if err := os.WriteFile(path, []byte("not-a-number # oops\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path, defaultStart)
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("corrupt checkpoint must not error: %v", err)
	}
	if got != defaultStart {
		t.Errorf("Load = %d, want default", got)
	}
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "last_processed_time.txt")
	s := NewFileStore(path, defaultStart)
	ctx := context.Background()

	var last int64
	for _, ms := range []int64{defaultStart + 1000, defaultStart + 172800000, defaultStart + 345600000} {
		if err := s.Save(ctx, ms); err != nil {
			t.Fatalf("Save(%d): %v", ms, err)
		}
		got, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got != ms {
			t.Errorf("Load = %d, want %d", got, ms)
		}
		if got < last {
			t.Errorf("checkpoint went backwards: %d < %d", got, last)
		}
		last = got
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "UTC [") || !strings.HasSuffix(string(data), "IST]\n") {
		t.Errorf("checkpoint file missing human-readable comment: %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestSQLStore_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := database.ConnectSQL(ctx, database.DriverSQLite, filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("ConnectSQL: %v", err)
	}
	d, ok := DialectFor("sqlite")
	if !ok {
		t.Fatal("sqlite dialect not registered")
	}
	s, err := NewSQLStore(ctx, db, d, "posthog-powerbi", defaultStart)
	if err != nil {
		t.Fatalf("NewSQLStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.Load(ctx)
	if err != nil || got != defaultStart {
		t.Fatalf("Load on empty table = %d, %v", got, err)
	}

	for _, ms := range []int64{defaultStart + 1, defaultStart + 2} {
		if err := s.Save(ctx, ms); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := s.Load(ctx)
		if err != nil || got != ms {
			t.Fatalf("Load = %d, %v; want %d", got, err, ms)
		}
	}

	// Re-running the schema step must be harmless.
	if _, err := NewSQLStore(ctx, db, d, "other", defaultStart); err != nil {
		t.Fatalf("second NewSQLStore: %v", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"file", config.Config{CheckpointBackend: config.BackendFile, CheckpointFile: filepath.Join(dir, "cp.txt")}},
		{"sqlite", config.Config{CheckpointBackend: config.BackendSQLite, CheckpointDSN: filepath.Join(dir, "cp.db"), CheckpointName: "posthog-powerbi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.DefaultStart = "2025-04-18T00:00:00Z"
			ctx := context.Background()

			s, err := Open(ctx, &tt.cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer s.Close()

			if got, _ := s.Load(ctx); got != defaultStart {
				t.Errorf("fresh store = %d, want %d", got, defaultStart)
			}
			if err := s.Save(ctx, defaultStart+60000); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if got, _ := s.Load(ctx); got != defaultStart+60000 {
				t.Errorf("Load after Save = %d", got)
			}
		})
	}

	if _, err := Open(context.Background(), &config.Config{CheckpointBackend: "etcd"}); err == nil {
		t.Error("unknown backend should fail")
	}
}
