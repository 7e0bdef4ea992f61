package store

import (
	"context"
	"database/sql"
	"fmt"

	"galaxy/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ Source = (*SQLiteStore)(nil)
var _ SampleWriter = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS samples (
	date      TEXT NOT NULL,
	ticker    TEXT NOT NULL,
	x         REAL NOT NULL,
	y         REAL NOT NULL,
	headline  TEXT NOT NULL DEFAULT '',
	sentiment REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (date, ticker)
);
CREATE INDEX IF NOT EXISTS samples_ticker ON samples (ticker);
`

// SQLiteStore keeps samples in a single table keyed by (date, ticker).
type SQLiteStore struct {
	path string
	db   *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns
// a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{path: dbPath, db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Name implements Source.
func (s *SQLiteStore) Name() string { return "sqlite:" + s.path }

// WriteSamples upserts samples in one transaction. Malformed samples are
// skipped.
func (s *SQLiteStore) WriteSamples(ctx context.Context, samples []domain.RawSample) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO samples
		(date, ticker, x, y, headline, sentiment) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, smp := range samples {
		if smp.Malformed {
			continue
		}
		if _, err := stmt.ExecContext(ctx, smp.Date, smp.Ticker, smp.X, smp.Y, smp.Headline, smp.Sentiment); err != nil {
			return fmt.Errorf("inserting %s/%s: %w", smp.Date, smp.Ticker, err)
		}
	}
	return tx.Commit()
}

// Load implements Source.
func (s *SQLiteStore) Load(ctx context.Context) ([]domain.RawSample, error) {
	out, err := s.query(ctx, `SELECT date, ticker, x, y, headline, sentiment
		FROM samples ORDER BY date, ticker`)
	if err != nil {
		return nil, &LoadError{Source: s.Name(), Reason: "query samples", Err: err}
	}
	if len(out) == 0 {
		return nil, &LoadError{Source: s.Name(), Reason: "no samples"}
	}
	return out, nil
}

// ReadTicker returns every sample for ticker in date order.
func (s *SQLiteStore) ReadTicker(ctx context.Context, ticker string) ([]domain.RawSample, error) {
	out, err := s.query(ctx, `SELECT date, ticker, x, y, headline, sentiment
		FROM samples WHERE ticker = ? ORDER BY date`, ticker)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ticker %s: %w", ticker, ErrNotFound)
	}
	return out, nil
}

// ListDates returns the distinct dates in ascending order.
func (s *SQLiteStore) ListDates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT date FROM samples ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]domain.RawSample, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RawSample
	for rows.Next() {
		var smp domain.RawSample
		if err := rows.Scan(&smp.Date, &smp.Ticker, &smp.X, &smp.Y, &smp.Headline, &smp.Sentiment); err != nil {
			return nil, err
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}
