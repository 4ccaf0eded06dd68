package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(WARN)
	defer func() {
		SetLevel(INFO)
		Close()
	}()

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	Errorf("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "WARN: ") || !strings.Contains(out, "shown 2") {
		t.Errorf("missing warn line: %q", out)
	}
	if !strings.Contains(out, "ERROR: ") || !strings.Contains(out, "shown 3") {
		t.Errorf("missing error line: %q", out)
	}
}

func TestInitLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.log")
	if err := InitLogger(path, INFO); err != nil {
		t.Fatalf("InitLogger: %v", err)
	}
	Infof("checkpoint updated to %d", 42)
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "checkpoint updated to 42") {
		t.Errorf("log file missing line: %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != DEBUG || ParseLevel("warn") != WARN || ParseLevel("error") != ERROR {
		t.Error("known levels not parsed")
	}
	if ParseLevel("verbose") != INFO {
		t.Error("unknown level should default to INFO")
	}
}
