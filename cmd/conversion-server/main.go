// Package main is the entry point for the conversion game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MRamiBalles/Conversion/server/internal/engine"
	"github.com/MRamiBalles/Conversion/server/internal/events"
	"github.com/MRamiBalles/Conversion/server/internal/infra/cache"
	"github.com/MRamiBalles/Conversion/server/internal/infra/storage"
	"github.com/MRamiBalles/Conversion/server/internal/network"
	"github.com/MRamiBalles/Conversion/server/internal/platform/config"
	"github.com/MRamiBalles/Conversion/server/internal/platform/logger"
	"github.com/MRamiBalles/Conversion/server/internal/platform/metrics"
	"github.com/MRamiBalles/Conversion/server/internal/platform/optimization"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "conversion-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	appLogger := logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel))
	collector := metrics.Get()

	session, err := engine.NewSession(cfg.Game, engine.RealClock{})
	if err != nil {
		return err
	}
	appLogger = appLogger.With("session", session.ID())

	// The journal is write-only analytics; game state never comes back from it.
	var (
		persister events.EventPersister
		repo      storage.JournalRepository
	)
	if cfg.DBPath != "" {
		appLogger.Info("opening journal", "path", cfg.DBPath)
		db, err := storage.InitSQLite(cfg.DBPath, cfg.Tuning.DBMaxOpenConns, cfg.Tuning.DBMaxIdleConns)
		if err != nil {
			return err
		}
		defer db.Close()
		sqlRepo := storage.NewSQLiteJournalRepository(db)
		repo = sqlRepo
		persister = storage.NewJournalPersister(sqlRepo, session.ID(), collector)
	} else {
		appLogger.Warn("journal disabled, events stay in memory only")
	}

	eventLog := events.NewEventLog(persister)
	eventLog.OnPersistError(func(err error) {
		appLogger.Warn("journal write failed", "error", err)
	})

	frames, err := cache.NewFrameCache(cfg.Tuning.SnapshotCacheSize)
	if err != nil {
		return err
	}
	// Seed before the engine goroutine takes ownership of the session.
	frames.Put(session.Snapshot())

	gameEngine := engine.NewEngine(session, eventLog, appLogger, &cfg.Tuning)
	gameEngine.OnChange = frames.Put

	hub := network.NewHub(gameEngine, &cfg.Tuning, appLogger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	network.NewGameAPI(gameEngine, frames, appLogger).RegisterRoutes(mux)
	network.NewJournalHandler(session.ID(), eventLog, repo, appLogger).RegisterRoutes(mux)
	mux.HandleFunc("/metrics", collector.Handler())
	mux.HandleFunc("/metrics/prometheus", collector.PrometheusHandler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return gameEngine.Run(gctx) })
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	hub.StartEventPoller(gctx, eventLog, cfg.Tuning.BroadcastInterval)
	hub.StartSnapshotBroadcaster(gctx, frames)

	g.Go(func() error {
		appLogger.Info("http api and websocket listening", "addr", cfg.Addr, "profile", cfg.Profile)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	// Flush journal writes before the deferred db.Close.
	eventLog.Close()

	rec := optimization.Analyze(collector.Snapshot())
	for _, note := range rec.Notes {
		appLogger.Info("tuning recommendation", "note", note)
	}
	hits, misses := frames.Stats()
	appLogger.Info("server stopped", "cache_hits", hits, "cache_misses", misses)
	return err
}
