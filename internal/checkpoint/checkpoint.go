// Package checkpoint persists the sync watermark: the epoch-millisecond end
// of the last window whose events were pushed successfully.
package checkpoint

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/BartekS5/eventsync/internal/config"
	"github.com/BartekS5/eventsync/pkg/database"
	"github.com/BartekS5/eventsync/pkg/utils"
)

// Store reads and writes a single watermark. Load never fails on absent or
// unparseable content; it falls back to the store's default start instead.
type Store interface {
	Load(ctx context.Context) (int64, error)
	Save(ctx context.Context, ms int64) error
	Close() error
}

// Describe renders ms as "YYYY-MM-DD HH:MM:SS UTC [YYYY-MM-DD HH:MM:SS IST]".
func Describe(ms int64) string {
	t := utils.MillisToTime(ms)
	return fmt.Sprintf("%s UTC [%s IST]", t.Format(utils.ReportLayout), t.In(utils.IST).Format(utils.ReportLayout))
}

// FormatLine is the text form written by the file and redis backends.
func FormatLine(ms int64) string {
	return fmt.Sprintf("%d  # %s\n", ms, Describe(ms))
}

// ParseLine reads the leading integer token and ignores the rest.
func ParseLine(s string) (int64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty checkpoint")
	}
	ms, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid checkpoint %q: %w", fields[0], err)
	}
	return ms, nil
}

// Open builds the store selected by cfg.CheckpointBackend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	def := cfg.DefaultStartMillis()

	switch cfg.CheckpointBackend {
	case config.BackendFile:
		return NewFileStore(cfg.CheckpointFile, def), nil
	case config.BackendMongo:
		client, err := database.ConnectMongo(ctx, cfg.CheckpointDSN)
		if err != nil {
			return nil, err
		}
		return NewMongoStore(client, cfg.MongoDatabase, cfg.CheckpointName, def), nil
	case config.BackendSQLServer, config.BackendPostgres, config.BackendSQLite:
		d := dialects[cfg.CheckpointBackend]
		db, err := database.ConnectSQL(ctx, d.driver, cfg.CheckpointDSN)
		if err != nil {
			return nil, err
		}
		s, err := NewSQLStore(ctx, db, d, cfg.CheckpointName, def)
		if err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		client, err := database.ConnectRedis(ctx, cfg.CheckpointDSN)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.CheckpointName, def), nil
	default:
		return nil, fmt.Errorf("unsupported checkpoint backend: %s", cfg.CheckpointBackend)
	}
}
