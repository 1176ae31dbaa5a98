package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"sysmon/collector"
	"sysmon/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS metrics (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp     TEXT NOT NULL,
    cpu           REAL NOT NULL,
    ram           REAL NOT NULL,
    top_processes TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics(timestamp);
`

// Store is a handle on a SQLite metrics file. It holds no connection: every
// operation opens the database, does its work and closes it again.
//
// Insert and the query methods initialize the schema on first use, so a Store
// pointing at a missing file is usable without calling Initialize.
//
// There is no application-level locking. A single writer is assumed;
// concurrent writers rely on SQLite's own locking and busy timeout.
type Store struct {
	path string
	log  *zap.Logger
}

// New returns a store for the database file at path. A logger carried by an
// operation's context takes precedence over log.
func New(path string, log *zap.Logger) *Store {
	if log == nil {
		log = logger.Nop().Logger
	}
	return &Store{path: path, log: log}
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Initialize creates the parent directory and the metrics table if they do
// not exist. Calling it on a ready store is a no-op.
func (s *Store) Initialize(ctx context.Context) error {
	db, err := s.connect(ctx)
	if err != nil {
		return err
	}
	logger.FromContext(ctx, s.log).Info("SQLite schema ensured", zap.String("path", s.path))
	return db.Close()
}

// Destroy removes the database file and its journal siblings. A missing file
// is not an error.
func (s *Store) Destroy() error {
	var errs error
	for _, p := range []string{s.path, s.path + "-journal", s.path + "-wal", s.path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = multierr.Append(errs, fmt.Errorf("remove %s: %w", p, err))
		}
	}
	if errs != nil {
		return errs
	}
	s.log.Info("SQLite store destroyed", zap.String("path", s.path))
	return nil
}

// Exists reports whether the database file is present.
func (s *Store) Exists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", s.path, err)
}

// Insert validates sample and appends it as one row. Nothing is written when
// validation fails. The timestamp is stored in UTC truncated to whole
// microseconds, which is what the query methods return. The returned id is
// greater than every existing id.
func (s *Store) Insert(ctx context.Context, sample collector.Sample) (id int64, err error) {
	row, err := sample.Encode()
	if err != nil {
		return 0, err
	}

	db, err := s.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	res, err := db.ExecContext(ctx,
		`INSERT INTO metrics (timestamp, cpu, ram, top_processes) VALUES (?, ?, ?, ?)`,
		row.Timestamp, row.CPU, row.RAM, row.TopProcesses)
	if err != nil {
		return 0, fmt.Errorf("insert sample: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted id: %w", err)
	}
	logger.FromContext(ctx, s.log).Debug("sample persisted", zap.Int64("id", id), zap.String("ts", row.Timestamp))
	return id, nil
}

// QueryLast returns the limit most recently inserted samples, newest first.
// A limit below one selects DefaultLimit.
func (s *Store) QueryLast(ctx context.Context, limit int) (*Series, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return s.query(ctx,
		`SELECT timestamp, cpu, ram, top_processes FROM metrics ORDER BY id DESC LIMIT ?`,
		limit)
}

// QuerySince returns every sample whose timestamp is at or after since,
// oldest first. A zero since fails with ErrNoSince.
func (s *Store) QuerySince(ctx context.Context, since time.Time) (*Series, error) {
	if since.IsZero() {
		return nil, ErrNoSince
	}
	switch y := since.UTC().Year(); {
	case y > collector.MaxYear:
		// later than anything Insert accepts
		return s.query(ctx, `SELECT timestamp, cpu, ram, top_processes FROM metrics WHERE 0`)
	case y < collector.MinYear:
		since = time.Date(collector.MinYear, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	// Both sides use collector.TimestampLayout, so text order is time order.
	return s.query(ctx,
		`SELECT timestamp, cpu, ram, top_processes FROM metrics
WHERE timestamp >= ?
ORDER BY timestamp ASC, id ASC`,
		collector.FormatTimestamp(since))
}

// Count returns the number of stored samples.
func (s *Store) Count(ctx context.Context) (n int64, err error) {
	db, err := s.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM metrics`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) (series *Series, err error) {
	db, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()

	series = NewSeries(0)
	for rows.Next() {
		var (
			text     string
			cpu, ram float64
			blob     string
		)
		if err := rows.Scan(&text, &cpu, &ram, &blob); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		ts, err := collector.ParseTimestamp(text)
		if err != nil {
			return nil, fmt.Errorf("stored sample: %w", err)
		}
		series.Append(ts, cpu, ram, blob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return series, nil
}

// connect opens the database and ensures the schema.
func (s *Store) connect(ctx context.Context) (*sql.DB, error) {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	// The modernc.org driver is pure-Go and works without CGO.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", s.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create metrics table: %w", err)
	}
	return db, nil
}
