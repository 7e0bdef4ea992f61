// Terminal viewer for the market galaxy.
//
// By default it loads the configured source in-process and plays a local
// session. With -remote it mirrors a galaxy-server session over gRPC and
// sends playback and filter controls through the HTTP API.
//
// Usage:
//
//	go build -o bin/galaxy-console ./cmd/galaxy-console/
//	bin/galaxy-console [-remote localhost:9090 -api http://localhost:8080]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"galaxy/internal/camera"
	"galaxy/internal/config"
	"galaxy/internal/dashboard"
	"galaxy/internal/domain"
	"galaxy/internal/live"
	"galaxy/internal/store"
	"galaxy/internal/util"
	"galaxy/pkg/galaxy"
)

func main() {
	remote := flag.String("remote", "", "galaxy-server gRPC address to mirror instead of loading locally")
	api := flag.String("api", "http://localhost:8080", "galaxy-server HTTP address for controls in -remote mode")
	flag.Parse()

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// The terminal owns stdout; log to a file.
	logFileName := fmt.Sprintf("/tmp/galaxy-console-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("opening log file: %v", err)
	}
	defer logFile.Close()
	logger := util.NewLoggerTo(logFile, cfg.Logging.Level, "text")
	util.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		f      feed
		syncCh = make(chan error, 1)
	)
	if *remote != "" {
		rf, err := openRemote(ctx, *remote, *api)
		if err != nil {
			log.Fatalf("connecting to %s: %v", *api, err)
		}
		defer rf.sess.Close(context.Background())

		client := live.NewClient(*remote, rf.mirror, logger)
		client.Request = live.StreamRequest{Session: rf.sess.ID}
		go func() { syncCh <- client.Sync(ctx) }()
		f = rf
	} else {
		src, closeSrc, err := store.Open(cfg.Source.Kind, cfg.SourceLocation())
		if err != nil {
			log.Fatalf("opening source: %v", err)
		}
		defer closeSrc()

		fmt.Fprint(os.Stderr, "loading timeline...")
		m := dashboard.New(src, dashboard.OptionsFrom(cfg), logger)
		defer m.Close()
		if err := m.Load(ctx); err != nil {
			fmt.Fprintln(os.Stderr)
			log.Fatalf("loading %s: %v", src.Name(), err)
		}
		fmt.Fprintf(os.Stderr, " %s frames\n", dashboard.FormatInt(m.Snapshot().Frames))
		f = &localFeed{model: m, sess: m.NewSession()}
	}

	p := tea.NewProgram(
		initialModel(f, logger, cancel),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)

	go func() {
		if err := <-syncCh; err != nil && ctx.Err() == nil {
			p.Send(syncErrMsg{err: err})
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// openRemote creates a server session for this console and seeds the local
// filter copy from it.
func openRemote(ctx context.Context, addr, api string) (*remoteFeed, error) {
	c := galaxy.NewClient(api)
	status, err := c.Status(ctx)
	if err != nil {
		return nil, err
	}
	if status.Status == dashboard.StatusFailed {
		if _, err := c.Reload(ctx); err != nil {
			return nil, err
		}
	}
	sess, err := c.CreateSession(ctx)
	if err != nil {
		return nil, err
	}
	fj, err := sess.Filters(ctx)
	if err != nil {
		return nil, err
	}
	filters := domain.DefaultFilters()
	filters.SetMinEnergyPercent(fj.MinEnergyPercent)
	filters.SetSectors(fj.Sectors)
	filters.ShowPositive = fj.ShowPositive
	filters.ShowNeutral = fj.ShowNeutral
	filters.ShowNegative = fj.ShowNegative

	return &remoteFeed{
		sess:    sess,
		mirror:  live.NewMirror(),
		addr:    addr,
		filters: filters,
		fits:    make(map[camera.Viewport]camera.CameraFit),
	}, nil
}
