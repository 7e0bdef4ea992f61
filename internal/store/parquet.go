package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"

	"galaxy/internal/domain"
)

// Compile-time interface checks.
var _ Source = (*ParquetStore)(nil)
var _ SampleWriter = (*ParquetStore)(nil)

// ParquetStore keeps samples as one Parquet file per date:
//
//	<DataDir>/samples/<YYYY-MM-DD>.parquet
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// SampleRecord is the Parquet schema for one snapshot row.
type SampleRecord struct {
	Date      string  `parquet:"date"`
	Ticker    string  `parquet:"ticker"`
	X         float64 `parquet:"x"`
	Y         float64 `parquet:"y"`
	Headline  string  `parquet:"headline"`
	Sentiment float64 `parquet:"sentiment"`
}

func toRecord(s domain.RawSample) SampleRecord {
	return SampleRecord{
		Date:      s.Date,
		Ticker:    s.Ticker,
		X:         s.X,
		Y:         s.Y,
		Headline:  s.Headline,
		Sentiment: s.Sentiment,
	}
}

func (r SampleRecord) sample() domain.RawSample {
	return domain.RawSample{
		Date:      r.Date,
		Ticker:    r.Ticker,
		X:         r.X,
		Y:         r.Y,
		Headline:  r.Headline,
		Sentiment: r.Sentiment,
	}
}

// Name implements Source.
func (s *ParquetStore) Name() string { return "parquet:" + s.DataDir }

// WriteSamples writes samples grouped by date, merging with existing files.
// Malformed samples are skipped.
func (s *ParquetStore) WriteSamples(_ context.Context, samples []domain.RawSample) error {
	groups := make(map[string][]SampleRecord)
	for _, smp := range samples {
		if smp.Malformed {
			continue
		}
		groups[smp.Date] = append(groups[smp.Date], toRecord(smp))
	}

	for date, records := range groups {
		path := s.datePath(date)

		// Read existing records to merge.
		existing, _ := readParquetFile[SampleRecord](path)
		merged := mergeSampleRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing samples for %s: %w", date, err)
		}
	}
	return nil
}

// ReadDate returns the samples stored for one date.
func (s *ParquetStore) ReadDate(_ context.Context, date string) ([]domain.RawSample, error) {
	records, err := readParquetFile[SampleRecord](s.datePath(date))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("date %s: %w", date, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", date, err)
	}
	out := make([]domain.RawSample, len(records))
	for i, r := range records {
		out[i] = r.sample()
	}
	return out, nil
}

// ListDates lists the archived dates in ascending order.
func (s *ParquetStore) ListDates(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.samplesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(name, ".parquet"))
	}
	sort.Strings(dates)
	return dates, nil
}

// Load implements Source by reading every archived date.
func (s *ParquetStore) Load(ctx context.Context) ([]domain.RawSample, error) {
	dates, err := s.ListDates(ctx)
	if err != nil {
		return nil, &LoadError{Source: s.Name(), Reason: "list dates", Err: err}
	}
	if len(dates) == 0 {
		return nil, &LoadError{Source: s.Name(), Reason: "no archived dates"}
	}

	var out []domain.RawSample
	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			return nil, &LoadError{Source: s.Name(), Reason: "cancelled", Err: err}
		}
		samples, err := s.ReadDate(ctx, d)
		if err != nil {
			return nil, &LoadError{Source: s.Name(), Reason: "read date", Err: err}
		}
		out = append(out, samples...)
	}
	return out, nil
}

func (s *ParquetStore) samplesDir() string {
	return filepath.Join(s.DataDir, "samples")
}

// datePath returns the filesystem path for a date's Parquet file.
func (s *ParquetStore) datePath(date string) string {
	return filepath.Join(s.samplesDir(), date+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeSampleRecords deduplicates records by (date, ticker), preferring new
// records over existing ones. Results are sorted by ticker.
func mergeSampleRecords(existing, incoming []SampleRecord) []SampleRecord {
	type key struct {
		date   string
		ticker string
	}
	seen := make(map[key]SampleRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Date, r.Ticker}] = r
	}
	for _, r := range incoming {
		seen[key{r.Date, r.Ticker}] = r
	}

	merged := make([]SampleRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Ticker < merged[j].Ticker
	})
	return merged
}
