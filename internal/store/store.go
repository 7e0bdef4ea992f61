// Package store loads raw market snapshot samples from their backing
// sources (JSON documents, Parquet archives, SQLite databases) and writes
// them back out for archiving.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"galaxy/internal/domain"
)

// ErrLoad marks a failure to obtain the sample set. It is fatal for the
// session: the timeline stays absent until the load is retried.
var ErrLoad = errors.New("load failed")

// ErrNotFound is returned when a requested date or ticker has no samples.
var ErrNotFound = errors.New("not found")

// LoadError describes why a source could not be loaded. It matches ErrLoad
// under errors.Is.
type LoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Source, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// Source yields the full sample set of one dataset.
type Source interface {
	// Load returns every sample in the dataset. Errors match ErrLoad.
	Load(ctx context.Context) ([]domain.RawSample, error)

	// Name identifies the source in logs and status output.
	Name() string
}

// SampleWriter persists samples, merging with what is already stored.
type SampleWriter interface {
	WriteSamples(ctx context.Context, samples []domain.RawSample) error
}

// Source kinds accepted by Open.
const (
	KindJSON    = "json"
	KindParquet = "parquet"
	KindSQLite  = "sqlite"
)

// Open returns the Source of the given kind reading from location: a file
// path or http(s) URL for json, a data directory for parquet and a database
// path for sqlite. The returned close function releases held resources.
func Open(kind, location string) (Source, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(kind) {
	case "", KindJSON:
		return NewJSONSource(location), noop, nil
	case KindParquet:
		return NewParquetStore(location), noop, nil
	case KindSQLite:
		s, err := NewSQLiteStore(location)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", kind)
	}
}
