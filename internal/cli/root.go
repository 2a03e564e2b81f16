// Package cli provides the command-line interface for engram.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/engram-ai/engram-go/internal/config"
	"github.com/engram-ai/engram-go/internal/db"
	"github.com/engram-ai/engram-go/internal/embedding"
	"github.com/engram-ai/engram-go/internal/metrics"
	"github.com/engram-ai/engram-go/internal/search"
	"github.com/engram-ai/engram-go/internal/service"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	agentID string

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client

	// Lazy-initialized components
	embedder  embedding.Embedder
	collector *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "engram",
	Short: "Agent memory store with hybrid similarity search",
	Long: `Engram stores agent memories and knowledge documents in MongoDB and
searches them with native vector search when available, falling back to
application-level cosine ranking when it is not.

Memory writes pass a deduplication gate; knowledge documents are chunked
for retrieval and searches are cached per agent.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		collector = metrics.NewCollector()

		ctx := context.Background()
		dbCfg := db.Config{
			URI:             cfg.MongoURL,
			Database:        cfg.Database,
			EmbeddingDim:    cfg.EmbeddingDim,
			CacheTTL:        cfg.CacheTTL,
			VectorIndexName: cfg.VectorIndexName,
		}

		logger := slog.Default()
		if verbose {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		// Capability detection and index bootstrap
		if err := dbClient.EnsureReady(ctx); err != nil {
			return fmt.Errorf("prepare database: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	},
}

// getServices creates services with lazy embedder initialization.
// Commands that need embeddings pass requireEmbedder=true.
func getServices(requireEmbedder bool) (*service.MemoryService, *service.KnowledgeService, error) {
	if requireEmbedder && embedder == nil {
		var err error
		embedder, err = embedding.New(embedding.Config{
			Provider:          embedding.ProviderType(cfg.EmbeddingProvider),
			Model:             cfg.EmbeddingModel,
			ExpectedDimension: cfg.EmbeddingDim,
			VoyageAPIKey:      cfg.VoyageAPIKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init embedder: %w", err)
		}
	}

	logger := slog.Default()
	engine := search.NewEngine(dbClient.Capability(), cfg.VectorIndexName, 0, logger, collector)

	memories := service.NewMemoryService(dbClient, dbClient.Memories(), engine, embedder, logger, collector)
	knowledge := service.NewKnowledgeService(dbClient, dbClient, dbClient.Knowledge(), engine, embedder, logger, collector)
	return memories, knowledge, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&agentID, "agent", "a", "default", "agent ID to operate as")

	rootCmd.AddCommand(rememberCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(statsCmd)
}
