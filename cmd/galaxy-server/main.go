package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"galaxy/internal/config"
	"galaxy/internal/dashboard"
	"galaxy/internal/httpapi"
	"galaxy/internal/live"
	"galaxy/internal/store"
	"galaxy/internal/util"
	"galaxy/internal/watchlist"
)

// sessionIdle is how long a session without stream subscribers survives.
const sessionIdle = 30 * time.Minute

func main() {
	// Load config.
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	src, closeSrc, err := store.Open(cfg.Source.Kind, cfg.SourceLocation())
	if err != nil {
		log.Fatalf("opening source: %v", err)
	}
	defer closeSrc()
	if js, ok := src.(*store.JSONSource); ok && cfg.Source.Attempts > 0 {
		js.Attempts = cfg.Source.Attempts
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	model := dashboard.New(src, dashboard.OptionsFrom(cfg), logger)
	defer model.Close()

	// A failed load is served as StatusFailed until POST /api/reload.
	if err := model.Load(ctx); err != nil {
		logger.Error("initial load failed", "error", err)
	}

	var wl watchlist.List = watchlist.NewMemory()
	if cfg.Alpaca.Enabled() {
		a := watchlist.NewAlpaca(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL, cfg.Alpaca.WatchlistID, logger)
		if err := a.Init(ctx); err != nil {
			logger.Warn("alpaca watchlist unavailable", "error", err)
		}
		wl = a
	}

	api := httpapi.NewServer(model, wl, httpapi.Options{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ReloadPerMinute: cfg.Server.ReloadPerMinute,
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer()
	live.NewServer(model, logger).RegisterGRPC(grpcServer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			log.Fatalf("listening on %s: %v", cfg.Server.GRPCAddr, err)
		}
		g.Go(func() error {
			logger.Info("grpc server listening", "addr", cfg.Server.GRPCAddr)
			return grpcServer.Serve(lis)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := model.Prune(sessionIdle); n > 0 {
					logger.Info("pruned idle sessions", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down galaxy server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		// Closing sessions ends open frame streams so GracefulStop returns.
		model.Close()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
	}
}
