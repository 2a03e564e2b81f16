package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// detectCapability probes the deployment for native vector search and settles
// the capability state. The probe itself never fails the caller: every
// negative outcome lands on the fallback path instead.
func (c *Client) detectCapability(ctx context.Context) error {
	admin := c.client.Database("admin")

	if err := admin.RunCommand(ctx, bson.D{{Key: "serverStatus", Value: 1}}).Err(); err != nil {
		c.caps.Downgrade(c.logger, fmt.Sprintf("serverStatus probe failed: %v", err))
		return c.ensureFallbackIndexes(ctx)
	}

	var hello struct {
		Msg string `bson:"msg"`
	}
	if err := admin.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		c.caps.Downgrade(c.logger, fmt.Sprintf("hello probe failed: %v", err))
		return c.ensureFallbackIndexes(ctx)
	}
	if hello.Msg == "isdbgrid" {
		// Sharded topology: vector-search index management is not reliably
		// available through mongos, so the connection stays on fallback.
		c.caps.Downgrade(c.logger, "sharded cluster detected")
		return c.ensureFallbackIndexes(ctx)
	}

	for _, name := range []string{CollMemories, CollKnowledge} {
		if err := c.ensureVectorIndex(ctx, name); err != nil {
			c.caps.Downgrade(c.logger, fmt.Sprintf("vector index on %s: %v", name, err))
			return c.ensureFallbackIndexes(ctx)
		}
	}

	c.caps.MarkNative()
	c.logger.Info("native vector search available", "index", c.cfg.VectorIndexName, "dimensions", c.cfg.EmbeddingDim)
	return nil
}

// vectorSearchFilterPaths are the fields native queries pass in the
// $vectorSearch filter clause. Each one must be declared in the index as a
// filter field or the first filtered query errors.
var vectorSearchFilterPaths = []string{"agentId", "roomId", "unique", "isShared"}

// vectorIndexDefinition builds the search-index definition: the embedding
// vector itself plus a filter entry for every field the engine filters on.
func vectorIndexDefinition(dimensions int) bson.D {
	fields := bson.A{
		bson.D{
			{Key: "type", Value: "vector"},
			{Key: "path", Value: "embedding"},
			{Key: "numDimensions", Value: dimensions},
			{Key: "similarity", Value: "cosine"},
		},
	}
	for _, path := range vectorSearchFilterPaths {
		fields = append(fields, bson.D{
			{Key: "type", Value: "filter"},
			{Key: "path", Value: path},
		})
	}
	return bson.D{{Key: "fields", Value: fields}}
}

// ensureVectorIndex creates the vector-search index on the named collection,
// tolerating an index that already exists.
func (c *Client) ensureVectorIndex(ctx context.Context, collection string) error {
	_, err := c.db.Collection(collection).SearchIndexes().CreateOne(ctx, mongo.SearchIndexModel{
		Definition: vectorIndexDefinition(c.cfg.EmbeddingDim),
		Options: options.SearchIndexes().
			SetName(c.cfg.VectorIndexName).
			SetType("vectorSearch"),
	})
	if err != nil && !isIndexExistsError(err) {
		return err
	}
	return nil
}

// ensureFallbackIndexes creates the plain indexes the fallback scan relies
// on: agent/recency for listing, and a partial variant covering the fetch
// filter's embedding-existence predicate. Indexing the embedding array
// itself would create one multikey entry per vector element, so the partial
// index keys on agent/recency and carries the existence check as its filter
// expression instead. Failures here only cost performance, so they are
// logged and swallowed.
func (c *Client) ensureFallbackIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "agentId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "agentId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().
				SetName("agentId_embedded").
				SetPartialFilterExpression(bson.D{{Key: "embedding", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
	}
	for _, name := range []string{CollMemories, CollKnowledge} {
		if _, err := c.db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			c.logger.Warn("fallback index creation failed", "collection", name, "error", err)
		}
	}
	return nil
}

func isIndexExistsError(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		// IndexAlreadyExists / IndexOptionsConflict
		if cmdErr.Code == 68 || cmdErr.Code == 85 {
			return true
		}
	}
	return strings.Contains(err.Error(), "already exists")
}
