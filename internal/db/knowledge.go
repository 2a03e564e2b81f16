package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/engram-ai/engram-go/internal/models"
)

// InsertKnowledgeIfAbsent writes a knowledge document, treating a duplicate
// ID as success. Chunk IDs are deterministic, so re-ingesting the same
// document is an idempotent no-op per chunk.
func (c *Client) InsertKnowledgeIfAbsent(ctx context.Context, k models.Knowledge) (InsertOutcome, error) {
	_, err := c.db.Collection(CollKnowledge).InsertOne(ctx, k)
	outcome, err := classifyInsert(err)
	if err != nil {
		return outcome, fmt.Errorf("insert knowledge: %w", err)
	}
	return outcome, nil
}

// GetKnowledge fetches a knowledge record by ID.
func (c *Client) GetKnowledge(ctx context.Context, id string) (models.Knowledge, error) {
	var k models.Knowledge
	err := c.db.Collection(CollKnowledge).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&k)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return k, fmt.Errorf("knowledge %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return k, fmt.Errorf("get knowledge: %w", err)
	}
	return k, nil
}

// RemoveKnowledge deletes a knowledge record and, when it is a main record,
// every chunk that references it. Returns the number of documents removed.
func (c *Client) RemoveKnowledge(ctx context.Context, id string) (int64, error) {
	coll := c.db.Collection(CollKnowledge)

	res, err := coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return 0, fmt.Errorf("delete knowledge: %w", err)
	}
	removed := res.DeletedCount

	chunks, err := coll.DeleteMany(ctx, bson.D{{Key: "originalId", Value: id}})
	if err != nil {
		return removed, fmt.Errorf("delete knowledge chunks: %w", err)
	}
	removed += chunks.DeletedCount

	if removed == 0 {
		return 0, fmt.Errorf("knowledge %s: %w", id, ErrNotFound)
	}
	return removed, nil
}

// CountKnowledge counts knowledge records visible to an agent, including
// shared records.
func (c *Client) CountKnowledge(ctx context.Context, agentID string) (int64, error) {
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "agentId", Value: agentID}},
		bson.D{{Key: "isShared", Value: true}},
	}}}
	n, err := c.db.Collection(CollKnowledge).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count knowledge: %w", err)
	}
	return n, nil
}
