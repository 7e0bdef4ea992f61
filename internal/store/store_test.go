package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"galaxy/internal/domain"
)

func sampleSet() []domain.RawSample {
	return []domain.RawSample{
		{Date: "2024-01-02", Ticker: "AAPL", X: 0.1, Y: 0.2, Headline: "iPhone", Sentiment: 0.4},
		{Date: "2024-01-02", Ticker: "MSFT", X: 0.3, Y: -0.1, Sentiment: -0.2},
		{Date: "2024-01-03", Ticker: "AAPL", X: 0.15, Y: 0.25, Sentiment: 0.1},
		{Date: "2024-01-03", Ticker: "BAD", Malformed: true},
	}
}

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	got := ps.datePath("2024-06-15")
	want := filepath.Join("/data", "samples", "2024-06-15.parquet")
	if got != want {
		t.Errorf("datePath mismatch:\n  got  %s\n  want %s", got, want)
	}
}

func TestParquetStoreWriteLoad(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	if err := ps.WriteSamples(ctx, sampleSet()); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}

	dates, err := ps.ListDates(ctx)
	if err != nil {
		t.Fatalf("ListDates: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2024-01-02" || dates[1] != "2024-01-03" {
		t.Errorf("ListDates = %v, want [2024-01-02 2024-01-03]", dates)
	}

	got, err := ps.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Load returned %d samples, want 3 (malformed skipped)", len(got))
	}
	if got[0].Ticker != "AAPL" || got[0].Headline != "iPhone" || got[0].Sentiment != 0.4 {
		t.Errorf("first sample = %+v, want AAPL/iPhone/0.4", got[0])
	}
}

func TestParquetStoreMergeSamples(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	first := []domain.RawSample{{Date: "2024-03-01", Ticker: "MSFT", X: 1, Y: 1}}
	if err := ps.WriteSamples(ctx, first); err != nil {
		t.Fatalf("WriteSamples (first): %v", err)
	}

	// A second write for the same date merges, and a repeated ticker
	// replaces the stored row.
	second := []domain.RawSample{
		{Date: "2024-03-01", Ticker: "AAPL", X: 2, Y: 2},
		{Date: "2024-03-01", Ticker: "MSFT", X: 9, Y: 9},
	}
	if err := ps.WriteSamples(ctx, second); err != nil {
		t.Fatalf("WriteSamples (second): %v", err)
	}

	got, err := ps.ReadDate(ctx, "2024-03-01")
	if err != nil {
		t.Fatalf("ReadDate: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadDate returned %d samples after merge, want 2", len(got))
	}
	if got[1].Ticker != "MSFT" || got[1].X != 9 {
		t.Errorf("MSFT sample = %+v, want X=9", got[1])
	}
}

func TestParquetStoreMissing(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	if _, err := ps.ReadDate(ctx, "2020-01-01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadDate error = %v, want ErrNotFound", err)
	}
	if _, err := ps.Load(ctx); !errors.Is(err, ErrLoad) {
		t.Errorf("Load on empty archive error = %v, want ErrLoad", err)
	}
}

func TestSQLiteStoreOpen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	}()

	// Verify the store is usable by pinging the database.
	if err := store.db.Ping(); err != nil {
		t.Fatalf("db.Ping() returned error: %v", err)
	}
}

func TestSQLiteStoreWriteLoad(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "samples.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, ErrLoad) {
		t.Errorf("Load on empty table error = %v, want ErrLoad", err)
	}

	if err := store.WriteSamples(ctx, sampleSet()); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	// Upsert keeps one row per (date, ticker).
	if err := store.WriteSamples(ctx, sampleSet()[:1]); err != nil {
		t.Fatalf("WriteSamples (repeat): %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Load returned %d samples, want 3", len(got))
	}

	hist, err := store.ReadTicker(ctx, "AAPL")
	if err != nil {
		t.Fatalf("ReadTicker: %v", err)
	}
	if len(hist) != 2 || hist[0].Date != "2024-01-02" {
		t.Errorf("ReadTicker = %+v, want two AAPL rows in date order", hist)
	}
	if _, err := store.ReadTicker(ctx, "ZZZ"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadTicker(ZZZ) error = %v, want ErrNotFound", err)
	}

	dates, err := store.ListDates(ctx)
	if err != nil {
		t.Fatalf("ListDates: %v", err)
	}
	if len(dates) != 2 {
		t.Errorf("ListDates = %v, want 2 dates", dates)
	}
}

func TestOpen(t *testing.T) {
	src, closeFn, err := Open("json", "data.json")
	if err != nil {
		t.Fatalf("Open(json): %v", err)
	}
	if _, ok := src.(*JSONSource); !ok {
		t.Errorf("Open(json) = %T, want *JSONSource", src)
	}
	closeFn()

	src, closeFn, err = Open("sqlite", filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close sqlite: %v", err)
	}
	if _, ok := src.(*SQLiteStore); !ok {
		t.Errorf("Open(sqlite) = %T, want *SQLiteStore", src)
	}

	if _, _, err := Open("mongo", ""); err == nil {
		t.Error("Open(mongo) should fail")
	}
}
