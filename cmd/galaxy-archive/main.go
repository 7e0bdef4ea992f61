// One-shot tool: archive a market history document into the local stores.
//
// Reads the configured JSON source (file or URL, or -in) and writes every
// well-formed sample to the per-date parquet archive and/or the SQLite
// samples table, merging with what is already stored. The server can then
// run with source.kind parquet or sqlite.
//
// Usage:
//
//	go build -o bin/galaxy-archive ./cmd/galaxy-archive/
//	bin/galaxy-archive [-in data/market_history.json] [-to parquet,sqlite] [-export out.json]
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"galaxy/internal/config"
	"galaxy/internal/physics"
	"galaxy/internal/store"
	"galaxy/internal/util"
)

func main() {
	in := flag.String("in", "", "JSON file or URL to read (default: source.location)")
	to := flag.String("to", "parquet,sqlite", "comma separated targets: parquet, sqlite")
	export := flag.String("export", "", "also write the merged archive back out as a JSON document")
	flag.Parse()

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, "text")
	slog.SetDefault(logger)

	location := *in
	if location == "" {
		location = cfg.Source.Location
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	src := store.NewJSONSource(location)
	if cfg.Source.Attempts > 0 {
		src.Attempts = cfg.Source.Attempts
	}
	samples, err := src.Load(ctx)
	if err != nil {
		log.Fatalf("reading %s: %v", location, err)
	}
	_, stats := physics.HydrateWithStats(samples)
	logger.Info("read samples",
		"source", location,
		"samples", len(samples),
		"dropped", stats.Dropped,
		"dates", stats.Frames,
		"tickers", stats.Tickers,
	)

	var sqliteStore *store.SQLiteStore
	writers := map[string]store.SampleWriter{}
	for _, target := range strings.Split(*to, ",") {
		switch strings.TrimSpace(target) {
		case store.KindParquet:
			writers[store.KindParquet] = store.NewParquetStore(cfg.Storage.DataDir)
		case store.KindSQLite:
			sqliteStore, err = store.NewSQLiteStore(cfg.Storage.SQLitePath)
			if err != nil {
				log.Fatalf("opening sqlite: %v", err)
			}
			defer sqliteStore.Close()
			writers[store.KindSQLite] = sqliteStore
		case "":
		default:
			log.Fatalf("unknown target %q", target)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, w := range writers {
		g.Go(func() error {
			t0 := time.Now()
			if err := w.WriteSamples(gctx, samples); err != nil {
				return err
			}
			logger.Info("archive written", "target", name, "elapsed", time.Since(t0).Round(time.Millisecond))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("writing archive: %v", err)
	}

	if *export != "" {
		if err := exportJSON(ctx, *export, writers); err != nil {
			log.Fatalf("exporting %s: %v", *export, err)
		}
		logger.Info("exported", "path", *export)
	}

	logger.Info("done", "elapsed", time.Since(start).Round(time.Millisecond))
}

// exportJSON re-reads the merged archive from the first available store and
// writes it as a {data: [...]} document.
func exportJSON(ctx context.Context, path string, writers map[string]store.SampleWriter) error {
	var src store.Source
	for _, kind := range []string{store.KindSQLite, store.KindParquet} {
		if s, ok := writers[kind].(store.Source); ok {
			src = s
			break
		}
	}
	if src == nil {
		return nil
	}
	samples, err := src.Load(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return store.EncodeDocument(f, samples)
}
