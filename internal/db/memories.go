package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/engram-ai/engram-go/internal/models"
)

// InsertMemory writes a memory document. The Unique flag must already be
// settled by the caller's dedup gate.
func (c *Client) InsertMemory(ctx context.Context, mem models.Memory) error {
	_, err := c.db.Collection(CollMemories).InsertOne(ctx, mem)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// GetMemory fetches a memory by ID.
func (c *Client) GetMemory(ctx context.Context, id string) (models.Memory, error) {
	var mem models.Memory
	err := c.db.Collection(CollMemories).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&mem)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return mem, fmt.Errorf("memory %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return mem, fmt.Errorf("get memory: %w", err)
	}
	return mem, nil
}

// ListMemories returns the newest memories for an agent, optionally scoped
// to a room.
func (c *Client) ListMemories(ctx context.Context, agentID, roomID string, limit int64) ([]models.Memory, error) {
	filter := bson.D{{Key: "agentId", Value: agentID}}
	if roomID != "" {
		filter = append(filter, bson.E{Key: "roomId", Value: roomID})
	}
	return c.findMemoriesNewestFirst(ctx, filter, limit)
}

// RecentMemories returns up to limit memories with embeddings for an agent,
// used by the write path's cached-embedding lookup. Newest-first ordering
// matters here: once an agent holds more embedded memories than the limit,
// an unordered window would stop seeing fresh writes.
func (c *Client) RecentMemories(ctx context.Context, agentID string, limit int64) ([]models.Memory, error) {
	filter := bson.D{
		{Key: "agentId", Value: agentID},
		{Key: "embedding", Value: bson.D{{Key: "$exists", Value: true}}},
	}
	return c.findMemoriesNewestFirst(ctx, filter, limit)
}

// findMemoriesNewestFirst fetches up to limit memories sorted by createdAt
// descending, skipping documents that no longer decode.
func (c *Client) findMemoriesNewestFirst(ctx context.Context, filter bson.D, limit int64) ([]models.Memory, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	cur, err := c.db.Collection(CollMemories).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find memories: %w", err)
	}
	defer cur.Close(ctx)

	var memories []models.Memory
	for cur.Next(ctx) {
		var mem models.Memory
		if err := bson.Unmarshal(cur.Current, &mem); err != nil {
			c.logger.Warn("skipping undecodable memory", "error", err)
			continue
		}
		memories = append(memories, mem)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("memories cursor: %w", err)
	}
	return memories, nil
}

// DeleteMemory removes a memory by ID. Deleting a missing memory returns
// ErrNotFound.
func (c *Client) DeleteMemory(ctx context.Context, id string) error {
	res, err := c.db.Collection(CollMemories).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("memory %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountMemories counts an agent's memories.
func (c *Client) CountMemories(ctx context.Context, agentID string) (int64, error) {
	n, err := c.db.Collection(CollMemories).CountDocuments(ctx, bson.D{{Key: "agentId", Value: agentID}})
	if err != nil {
		return 0, fmt.Errorf("count memories: %w", err)
	}
	return n, nil
}
