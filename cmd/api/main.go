package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/investment-ledger/internal/api"
	"github.com/dvloznov/investment-ledger/internal/api/handlers"
	"github.com/dvloznov/investment-ledger/internal/config"
	"github.com/dvloznov/investment-ledger/internal/gcs"
	"github.com/dvloznov/investment-ledger/internal/jobs"
	"github.com/dvloznov/investment-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/investment-ledger/internal/jobs/sqlite"
	"github.com/dvloznov/investment-ledger/internal/ledger"
	"github.com/dvloznov/investment-ledger/internal/logger"
	"github.com/dvloznov/investment-ledger/internal/suggest"
)

func main() {
	// Parse command-line flags
	var (
		envFile = flag.String("env", "", "path to a .env file (default: ./.env when present)")
		port    = flag.String("port", "", "HTTP server port (overrides PORT)")
		dataDir = flag.String("data-dir", "", "directory holding the ledger workbook (overrides LEDGER_DATA_DIR)")
		bucket  = flag.String("bucket", "", "GCS bucket for imports (overrides GCS_BUCKET)")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fatal := logger.New()
		fatal.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *dataDir != "" {
		cfg.Ledger.DataDir = *dataDir
	}
	if *bucket != "" {
		cfg.GCS.Bucket = *bucket
	}
	if err := cfg.Validate(); err != nil {
		fatal := logger.New()
		fatal.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	log, err := logger.NewFromConfig(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fatal := logger.New()
		fatal.Fatal().Err(err).Msg("Failed to create logger")
	}

	ctx := context.Background()

	// Record store
	store := ledger.NewStore(cfg.Ledger.Path(), log)
	if _, err := store.Load(ctx); err != nil {
		log.Fatal().Err(err).Str("path", store.Path()).Msg("Failed to open ledger")
	}

	// Suggestion cache
	cache, err := newSuggestionCache(cfg.Suggest, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create suggestion cache")
	}

	// Import jobs from Cloud Storage
	jobStore, closeJobStore, err := newJobStore(ctx, cfg.JobsDB, log)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.JobsDB).Msg("Failed to open job store")
	}
	defer closeJobStore()
	var publisher jobs.Publisher
	var jobQueue *inmemory.Queue

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if cfg.GCS.Bucket != "" || cfg.GCS.CredentialsFile != "" {
		storage, err := gcs.NewClient(ctx, cfg.GCS.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer storage.Close()

		jobQueue = inmemory.NewQueue(100, cfg.ImportWorkers, jobStore, log)
		if err := jobQueue.Start(workerCtx, jobs.NewImportHandler(storage, store, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to start import workers")
		}
		publisher = jobQueue
	} else {
		log.Warn().Msg("No GCS bucket configured - Cloud Storage imports will be disabled")
	}

	handler := api.NewRouter(api.Handlers{
		Ledger:      handlers.NewLedgerHandler(store, log),
		Jobs:        handlers.NewJobsHandler(publisher, jobStore, log),
		Suggestions: handlers.NewSuggestionsHandler(cache, log),
	}, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("ledger", store.Path()).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let running imports finish before the workers exit.
	if jobQueue != nil {
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}

// newSuggestionCache wires the enabled providers into a cache. With neither
// provider configured the cache answers ErrProviderUnavailable.
func newSuggestionCache(cfg config.SuggestConfig, log zerolog.Logger) (*suggest.Cache, error) {
	client := suggest.NewHTTPClient(cfg.Timeout)

	var fund, equity suggest.Provider
	if cfg.MFAPIEnabled {
		fund = suggest.NewMFAPI(cfg.MFAPIURL, client)
	}
	if cfg.AlphaVantageKey != "" {
		equity = suggest.NewAlphaVantage(cfg.AlphaVantageURL, cfg.AlphaVantageKey, client)
	} else {
		log.Warn().Msg("ALPHAVANTAGE_API_KEY not set - equity suggestions disabled")
	}

	return suggest.NewCache(fund, equity, suggest.Options{
		TTL:          cfg.TTL,
		MaxKeys:      cfg.MaxKeys,
		FetchTimeout: 2 * cfg.Timeout,
		EmptyResults: cfg.EmptyResultPolicy(),
	}, log)
}

// newJobStore opens the SQLite job history when path is set, otherwise an
// in-memory store. Jobs a previous process left unfinished are failed.
func newJobStore(ctx context.Context, path string, log zerolog.Logger) (jobs.JobStore, func(), error) {
	if path == "" {
		return inmemory.NewStore(), func() {}, nil
	}

	db, err := sqlite.Open(path)
	if err != nil {
		return nil, nil, err
	}
	n, err := db.MarkInterrupted(ctx, time.Now())
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if n > 0 {
		log.Warn().Int64("jobs", n).Msg("Marked interrupted import jobs as failed")
	}
	log.Info().Str("path", db.Path()).Msg("Job history stored in SQLite")

	return db, func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing job store")
		}
	}, nil
}
