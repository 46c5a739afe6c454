package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/FACorreiaa/go-travel-planner/app/db"
	appLogger "github.com/FACorreiaa/go-travel-planner/app/logger"
	"github.com/FACorreiaa/go-travel-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-travel-planner/app/tracer"
	"github.com/FACorreiaa/go-travel-planner/config"
	"github.com/FACorreiaa/go-travel-planner/internal/api/directions"
	"github.com/FACorreiaa/go-travel-planner/internal/api/discovery"
	"github.com/FACorreiaa/go-travel-planner/internal/api/llmclient"
	"github.com/FACorreiaa/go-travel-planner/internal/api/places"
	"github.com/FACorreiaa/go-travel-planner/internal/api/plan"
	"github.com/FACorreiaa/go-travel-planner/internal/api/planner"
	"github.com/FACorreiaa/go-travel-planner/internal/api/vectorindex"
	"github.com/FACorreiaa/go-travel-planner/internal/api/websearch"
	"github.com/FACorreiaa/go-travel-planner/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracer.InitTracingAndMetrics("go-travel-planner", cfg.Handlers.Prometheus.Port)
	metrics.InitAppMetrics()

	// --- Vector index backend ---
	// Postgres with pgvector when configured, in-memory otherwise. The
	// embedder falls back to local hashing when no embeddings key is set, so
	// the service stays usable for development without credentials.
	var embedder vectorindex.Embedder
	if cfg.Embeddings.APIKey != "" {
		embedder = vectorindex.NewOpenAIEmbedder(cfg.Embeddings, logger)
	} else {
		logger.Warn("No embeddings API key set, using local hashing embedder")
		embedder = vectorindex.NewHashingEmbedder(0)
	}

	var index vectorindex.Index
	if cfg.Repositories.Postgres.Host != "" {
		dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
		if err != nil {
			logger.Error("Failed to generate database config", slog.Any("error", err))
			os.Exit(1)
		}
		pool, err := database.Init(dbConfig.ConnectionURL, logger)
		if err != nil {
			logger.Error("Failed to initialize database pool", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()

		if !database.WaitForDB(ctx, pool, logger) {
			logger.Error("Database not ready after waiting, exiting.")
			os.Exit(1)
		}
		index = vectorindex.NewPostgres(pool, embedder, logger)
	} else {
		logger.Warn("No Postgres host configured, using in-memory vector index")
		index = vectorindex.NewMemory(embedder)
	}

	// --- Dependency Injection ---
	llmClient, err := llmclient.New(cfg.LLM, logger)
	if err != nil {
		logger.Error("Failed to initialize LLM client", slog.Any("error", err))
		os.Exit(1)
	}
	webSearch := websearch.NewTavilyClient(cfg.WebSearch, logger)
	validator := places.NewGoogleValidator(cfg.GoogleMaps, logger)
	calculator := directions.NewGoogleCalculator(cfg.GoogleMaps, logger)

	discoveryService := discovery.NewServiceImpl(llmClient, webSearch, index, validator, cfg.Discovery, logger)
	plannerService := planner.NewServiceImpl(llmClient, discoveryService, calculator, cfg.Planner, logger)
	planHandler := plan.NewPlanHandler(discoveryService, plannerService, logger)

	// --- Router Setup ---
	mainRouter := router.SetupRouter(&router.Config{
		PlanHandler: planHandler,
	})

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Compress(5, "application/json"))
	mux.Mount("/", mainRouter)

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Minute, // plan requests fan out to several upstreams
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" {
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
