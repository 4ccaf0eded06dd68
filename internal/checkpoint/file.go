package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BartekS5/eventsync/pkg/logger"
)

// FileStore keeps the checkpoint as a single line in a text file.
type FileStore struct {
	Path         string
	DefaultStart int64
}

func NewFileStore(path string, defaultStart int64) *FileStore {
	return &FileStore{Path: path, DefaultStart: defaultStart}
}

func (s *FileStore) Load(_ context.Context) (int64, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Infof("No checkpoint at %s, starting from %s", s.Path, Describe(s.DefaultStart))
		return s.DefaultStart, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read checkpoint file '%s': %w", s.Path, err)
	}

	ms, err := ParseLine(string(data))
	if err != nil {
		logger.Warnf("Ignoring corrupt checkpoint file %s: %v", s.Path, err)
		return s.DefaultStart, nil
	}
	return ms, nil
}

// Save writes to a temp file in the same directory and renames it over the
// checkpoint, so a crash leaves either the old or the new line.
func (s *FileStore) Save(_ context.Context, ms int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(FormatLine(ms)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("failed to replace checkpoint file '%s': %w", s.Path, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
