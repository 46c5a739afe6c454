package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	database "github.com/FACorreiaa/go-travel-planner/app/db"
	"github.com/FACorreiaa/go-travel-planner/config"
	"github.com/FACorreiaa/go-travel-planner/internal/api/vectorindex"
)

var batchSize = flag.Int("batch", 20, "rows to embed per batch")

// Backfills the embedding column for POI rows that are missing one, e.g.
// after a bulk import or an embedding model switch.
func main() {
	flag.Parse()
	ctx := context.Background()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Load configuration
	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Repositories.Postgres.Host == "" {
		log.Fatal("No Postgres host configured, nothing to backfill")
	}

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	// Set up database connection
	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		log.Fatal("Database not ready")
	}
	logger.Info("Connected to database successfully")

	// Same embedder selection as the server: vectors written here must live in
	// the same space the running service searches in.
	var embedder vectorindex.Embedder
	if cfg.Embeddings.APIKey != "" {
		embedder = vectorindex.NewOpenAIEmbedder(cfg.Embeddings, logger)
	} else {
		logger.Warn("No embeddings API key set, using local hashing embedder")
		embedder = vectorindex.NewHashingEmbedder(0)
	}
	index := vectorindex.NewPostgres(pool, embedder, logger)

	logger.Info("Starting embedding backfill for existing data...", slog.Int("batch_size", *batchSize))

	updated, err := index.BackfillEmbeddings(ctx, *batchSize)
	if err != nil {
		logger.Error("Embedding backfill failed", slog.Any("error", err), slog.Int("updated", updated))
		os.Exit(1)
	}

	logger.Info("Embedding backfill completed!", slog.Int("updated", updated))
}
