package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BartekS5/eventsync/internal/config"
	"github.com/BartekS5/eventsync/pkg/database"
	"github.com/BartekS5/eventsync/pkg/logger"
	"github.com/BartekS5/eventsync/pkg/utils"
)

// Dialect holds the statements that differ between SQL backends.
type Dialect struct {
	Name        string
	driver      string
	createTable string
	selectValue string
	upsert      string
}

var dialects = map[string]Dialect{
	config.BackendSQLServer: {
		Name:   config.BackendSQLServer,
		driver: database.DriverSQLServer,
		createTable: `IF OBJECT_ID(N'sync_checkpoints', N'U') IS NULL
			CREATE TABLE sync_checkpoints (
				name NVARCHAR(128) NOT NULL PRIMARY KEY,
				value_ms BIGINT NOT NULL,
				rendered NVARCHAR(128) NOT NULL,
				updated_at DATETIME2 NOT NULL
			)`,
		selectValue: `SELECT value_ms FROM sync_checkpoints WHERE name = @p1`,
		upsert: `MERGE sync_checkpoints AS t
			USING (SELECT @p1 AS name, @p2 AS value_ms, @p3 AS rendered, @p4 AS updated_at) AS s
			ON t.name = s.name
			WHEN MATCHED THEN UPDATE SET value_ms = s.value_ms, rendered = s.rendered, updated_at = s.updated_at
			WHEN NOT MATCHED THEN INSERT (name, value_ms, rendered, updated_at)
				VALUES (s.name, s.value_ms, s.rendered, s.updated_at);`,
	},
	config.BackendPostgres: {
		Name:   config.BackendPostgres,
		driver: database.DriverPostgres,
		createTable: `CREATE TABLE IF NOT EXISTS sync_checkpoints (
				name TEXT PRIMARY KEY,
				value_ms BIGINT NOT NULL,
				rendered TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
		selectValue: `SELECT value_ms FROM sync_checkpoints WHERE name = $1`,
		upsert: `INSERT INTO sync_checkpoints (name, value_ms, rendered, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO UPDATE SET value_ms = EXCLUDED.value_ms, rendered = EXCLUDED.rendered, updated_at = EXCLUDED.updated_at`,
	},
	config.BackendSQLite: {
		Name:   config.BackendSQLite,
		driver: database.DriverSQLite,
		createTable: `CREATE TABLE IF NOT EXISTS sync_checkpoints (
				name TEXT PRIMARY KEY,
				value_ms INTEGER NOT NULL,
				rendered TEXT NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
		selectValue: `SELECT value_ms FROM sync_checkpoints WHERE name = ?`,
		upsert: `INSERT INTO sync_checkpoints (name, value_ms, rendered, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET value_ms = excluded.value_ms, rendered = excluded.rendered, updated_at = excluded.updated_at`,
	},
}

// DialectFor returns the dialect registered for backend.
func DialectFor(backend string) (Dialect, bool) {
	d, ok := dialects[backend]
	return d, ok
}

// SQLStore keeps checkpoints in the sync_checkpoints table, one row per name.
type SQLStore struct {
	DB           *sql.DB
	Dialect      Dialect
	Name         string
	DefaultStart int64
}

// NewSQLStore creates the table when it is missing.
func NewSQLStore(ctx context.Context, db *sql.DB, d Dialect, name string, defaultStart int64) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, d.createTable); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint table (%s): %w", d.Name, err)
	}
	return &SQLStore{DB: db, Dialect: d, Name: name, DefaultStart: defaultStart}, nil
}

func (s *SQLStore) Load(ctx context.Context) (int64, error) {
	var raw interface{}
	err := s.DB.QueryRowContext(ctx, s.Dialect.selectValue, s.Name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Infof("No checkpoint %q in %s, starting from %s", s.Name, s.Dialect.Name, Describe(s.DefaultStart))
		return s.DefaultStart, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read checkpoint %q: %w", s.Name, err)
	}

	ms, err := utils.ConvertToInt64(raw)
	if err != nil {
		logger.Warnf("Ignoring corrupt checkpoint %q in %s: %v", s.Name, s.Dialect.Name, err)
		return s.DefaultStart, nil
	}
	return ms, nil
}

func (s *SQLStore) Save(ctx context.Context, ms int64) error {
	_, err := s.DB.ExecContext(ctx, s.Dialect.upsert, s.Name, ms, Describe(ms), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save checkpoint %q: %w", s.Name, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}
