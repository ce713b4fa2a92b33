// Package main is the entry point for the bar mitzvah parasha API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlmogShaul/bar-mitzva/internal/api"
	"github.com/AlmogShaul/bar-mitzva/internal/calendar"
	"github.com/AlmogShaul/bar-mitzva/internal/compare"
	"github.com/AlmogShaul/bar-mitzva/internal/config"
	"github.com/AlmogShaul/bar-mitzva/internal/database"
	"github.com/AlmogShaul/bar-mitzva/internal/hebcal"
	"github.com/AlmogShaul/bar-mitzva/internal/logger"
	"github.com/AlmogShaul/bar-mitzva/internal/metrics"
	"github.com/AlmogShaul/bar-mitzva/internal/parasha"
	"github.com/AlmogShaul/bar-mitzva/internal/selection"
	"github.com/AlmogShaul/bar-mitzva/internal/verses"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Setup structured logging
	log := logger.Setup(cfg)

	// Log startup info
	log.Info("starting bar mitzvah API",
		slog.Int("port", cfg.Port),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// Database
	db, err := database.Open(database.DefaultConfig(cfg.DatabasePath), log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	applied, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("migrations complete", slog.Int("applied", applied))

	// Verse corpus and catalog
	catalog := parasha.Default()
	corpus, err := db.ListVerses(ctx)
	if err != nil {
		return fmt.Errorf("load verses: %w", err)
	}
	if len(corpus) == 0 {
		log.Warn("verse corpus is empty; run cmd/import to load torah.json")
	}
	selector := verses.NewSelector(corpus, catalog)
	go reloadOnHangup(ctx, db, selector, log)

	// Calendar
	m := metrics.New()
	client, err := hebcal.NewClient(cfg.HebcalBaseURL, cfg.HebcalTimeout, log)
	if err != nil {
		return fmt.Errorf("hebcal client: %w", err)
	}
	gateway := hebcal.NewGateway(client, m)
	pipeline := calendar.NewPipeline(gateway, calendar.DefaultAnniversaryPolicy(), log)

	// Persisted selection
	state := selection.NewState(db, catalog, log)
	if err := state.Init(ctx); err != nil {
		return fmt.Errorf("restore selection: %w", err)
	}

	// Practice proxy
	var comparer *compare.Client
	if cfg.CompareEnabled() {
		comparer, err = compare.NewClient(cfg.CompareBaseURL, 0, log)
		if err != nil {
			return fmt.Errorf("compare client: %w", err)
		}
	} else {
		log.Info("audio comparison disabled")
	}

	handlers := api.NewHandlers(api.Deps{
		DB:        db,
		Pipeline:  pipeline,
		Catalog:   catalog,
		Selector:  selector,
		Selection: state,
		Compare:   comparer,
		Metrics:   m,
	}, cfg, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.SetupRoutes(handlers, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("bar mitzvah API ready",
			slog.String("addr", srv.Addr),
			slog.Int("verses", selector.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", slog.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// reloadOnHangup swaps in the stored corpus on SIGHUP, so a fresh
// cmd/import takes effect without a restart.
func reloadOnHangup(ctx context.Context, db *database.DB, selector *verses.Selector, log *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			corpus, err := db.ListVerses(ctx)
			if err != nil {
				log.Error("reload verses failed", slog.Any("error", err))
				continue
			}
			selector.Replace(corpus)
			log.Info("verse corpus reloaded", slog.Int("verses", len(corpus)))
		}
	}
}
