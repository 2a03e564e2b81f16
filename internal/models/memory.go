// Package models defines data structures for the engram memory store.
package models

import "time"

// Content is the free-form payload of a memory or knowledge record.
// Metadata carries structural flags (isMain, isChunk, isShared, originalId,
// chunkIndex) for chunked knowledge documents.
type Content struct {
	Text     string         `bson:"text" json:"text"`
	Metadata map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// Flag reads a boolean metadata field, treating absence as false.
func (c Content) Flag(name string) bool {
	v, ok := c.Metadata[name].(bool)
	return ok && v
}

// Memory is a single memory record owned by an agent, scoped to a room.
// Unique is decided once at insert time and never revised afterwards.
type Memory struct {
	ID        string    `bson:"_id" json:"id"`
	AgentID   string    `bson:"agentId" json:"agentId"`
	RoomID    string    `bson:"roomId,omitempty" json:"roomId,omitempty"`
	Content   Content   `bson:"content" json:"content"`
	Embedding []float32 `bson:"embedding,omitempty" json:"embedding,omitempty"`
	Unique    bool      `bson:"unique" json:"unique"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
