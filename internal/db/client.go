// Package db provides MongoDB connectivity, capability detection, and the
// collection-level operations behind the memory and knowledge stores.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/engram-ai/engram-go/internal/search"
)

// Collection names.
const (
	CollMemories  = "memories"
	CollKnowledge = "knowledge"
	CollCache     = "cache"
)

// Config holds MongoDB connection configuration.
type Config struct {
	URI          string
	Database     string
	EmbeddingDim int

	// CacheTTL bounds the lifetime of cached search results.
	CacheTTL time.Duration

	// VectorIndexName names the native vector-search index on both the
	// memories and knowledge collections.
	VectorIndexName string
}

// Client wraps the MongoDB connection together with the connection-scoped
// vector-search capability state.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    Config
	logger *slog.Logger

	caps *search.CapabilityState

	readyMu sync.Mutex
	ready   bool
}

// NewClient connects to MongoDB and verifies the connection with a ping.
// Capability detection is deferred to EnsureReady.
func NewClient(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.VectorIndexName == "" {
		cfg.VectorIndexName = "vector_index"
	}

	log.Info("connecting to MongoDB", "database", cfg.Database)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}

	log.Info("MongoDB connection established")
	return &Client{
		client: client,
		db:     client.Database(cfg.Database),
		cfg:    cfg,
		logger: log,
		caps:   search.NewCapabilityState(),
	}, nil
}

// Close closes the MongoDB connection.
func (c *Client) Close(ctx context.Context) error {
	c.logger.Info("closing MongoDB connection")
	return c.client.Disconnect(ctx)
}

// Capability returns the connection-scoped vector-search capability state.
func (c *Client) Capability() *search.CapabilityState {
	return c.caps
}

// Memories returns the memories collection wrapped for the search engine.
func (c *Client) Memories() *Collection {
	return &Collection{coll: c.db.Collection(CollMemories)}
}

// Knowledge returns the knowledge collection wrapped for the search engine.
func (c *Client) Knowledge() *Collection {
	return &Collection{coll: c.db.Collection(CollKnowledge)}
}

// EnsureReady runs capability detection and index bootstrap exactly once per
// client. Safe to call from concurrent request paths; later calls return
// immediately.
func (c *Client) EnsureReady(ctx context.Context) error {
	c.readyMu.Lock()
	defer c.readyMu.Unlock()
	if c.ready {
		return nil
	}
	if err := c.detectCapability(ctx); err != nil {
		return err
	}
	if err := c.ensureCacheIndexes(ctx); err != nil {
		return err
	}
	c.ready = true
	return nil
}
