package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// cacheEntry is the stored shape of one cached search result set. The TTL
// index on expiresAt handles eviction; reads still filter on it because the
// TTL sweep is periodic, not immediate.
type cacheEntry struct {
	Key       string    `bson:"_id"`
	AgentID   string    `bson:"agentId"`
	Value     []byte    `bson:"value"`
	CreatedAt time.Time `bson:"createdAt"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// cacheKey derives the cache document ID. Two queries with the same agent
// and text share an entry regardless of their other parameters.
func cacheKey(agentID, query string) string {
	return agentID + ":" + query
}

// ensureCacheIndexes creates the TTL index driving cache eviction.
func (c *Client) ensureCacheIndexes(ctx context.Context) error {
	_, err := c.db.Collection(CollCache).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("cache ttl index: %w", err)
	}
	return nil
}

// CacheGet returns the cached value for an agent's query, or ok=false on a
// miss or an expired entry the TTL sweep has not collected yet.
func (c *Client) CacheGet(ctx context.Context, agentID, query string) ([]byte, bool, error) {
	filter := bson.D{
		{Key: "_id", Value: cacheKey(agentID, query)},
		{Key: "expiresAt", Value: bson.D{{Key: "$gt", Value: time.Now()}}},
	}

	var entry cacheEntry
	err := c.db.Collection(CollCache).FindOne(ctx, filter).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return entry.Value, true, nil
}

// CacheSet stores a value under the agent's query key, replacing any
// existing entry and resetting its TTL.
func (c *Client) CacheSet(ctx context.Context, agentID, query string, value []byte) error {
	now := time.Now()
	entry := cacheEntry{
		Key:       cacheKey(agentID, query),
		AgentID:   agentID,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(c.cfg.CacheTTL),
	}

	_, err := c.db.Collection(CollCache).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: entry.Key}},
		entry,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
