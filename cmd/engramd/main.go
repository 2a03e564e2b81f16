// Package main provides the entry point for the engram MCP server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/engram-ai/engram-go/internal/config"
	"github.com/engram-ai/engram-go/internal/db"
	"github.com/engram-ai/engram-go/internal/embedding"
	"github.com/engram-ai/engram-go/internal/metrics"
	"github.com/engram-ai/engram-go/internal/search"
	"github.com/engram-ai/engram-go/internal/server"
	"github.com/engram-ai/engram-go/internal/service"
	"github.com/engram-ai/engram-go/internal/tools"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()
	slog.SetDefault(logger)

	logger.Info("engramd starting",
		"version", version,
		"database", cfg.Database,
		"embedding_provider", cfg.EmbeddingProvider,
		"embedding_dim", cfg.EmbeddingDim,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	dbClient, err := db.NewClient(ctx, db.Config{
		URI:             cfg.MongoURL,
		Database:        cfg.Database,
		EmbeddingDim:    cfg.EmbeddingDim,
		CacheTTL:        cfg.CacheTTL,
		VectorIndexName: cfg.VectorIndexName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = dbClient.Close(context.Background())
	}()

	// Capability detection and index bootstrap
	if err := dbClient.EnsureReady(ctx); err != nil {
		logger.Error("failed to prepare database", "error", err)
		os.Exit(1)
	}
	logger.Info("vector search capability settled", "capability", dbClient.Capability().Current().String())

	// Create embedder
	embedder, err := embedding.New(embedding.Config{
		Provider:          embedding.ProviderType(cfg.EmbeddingProvider),
		Model:             cfg.EmbeddingModel,
		ExpectedDimension: cfg.EmbeddingDim,
		VoyageAPIKey:      cfg.VoyageAPIKey,
	})
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	logger.Info("embedder initialized", "model", embedder.Model())

	// Wire up the search engine and services
	collector := metrics.NewCollector()
	engine := search.NewEngine(dbClient.Capability(), cfg.VectorIndexName, 0, logger, collector)
	memories := service.NewMemoryService(dbClient, dbClient.Memories(), engine, embedder, logger, collector)
	knowledge := service.NewKnowledgeService(dbClient, dbClient, dbClient.Knowledge(), engine, embedder, logger, collector)

	// Create and setup server
	srv := server.New(version, logger)
	srv.Setup()

	// Register tools
	deps := &tools.Dependencies{
		Memories:  memories,
		Knowledge: knowledge,
		Metrics:   collector,
		Logger:    logger,
	}
	tools.RegisterAll(srv.MCPServer(), deps)

	logger.Info("server ready, awaiting connections")

	// Run server (blocks until disconnect or context cancelled)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
