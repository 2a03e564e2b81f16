package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection adapts a mongo collection to the raw-document surface the
// search engine consumes.
type Collection struct {
	coll *mongo.Collection
}

// Aggregate runs the pipeline and drains the cursor into raw documents.
func (c *Collection) Aggregate(ctx context.Context, pipeline []bson.D) ([]bson.Raw, error) {
	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	return drain(ctx, cur)
}

// Find fetches up to limit documents matching filter.
func (c *Collection) Find(ctx context.Context, filter bson.D, limit int64) ([]bson.Raw, error) {
	if filter == nil {
		filter = bson.D{}
	}
	cur, err := c.coll.Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	return drain(ctx, cur)
}

// drain copies every document out of the cursor. cur.Current aliases the
// cursor's internal buffer, so each document is copied before the next
// advance.
func drain(ctx context.Context, cur *mongo.Cursor) ([]bson.Raw, error) {
	defer cur.Close(ctx)

	var docs []bson.Raw
	for cur.Next(ctx) {
		doc := make(bson.Raw, len(cur.Current))
		copy(doc, cur.Current)
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor: %w", err)
	}
	return docs, nil
}
