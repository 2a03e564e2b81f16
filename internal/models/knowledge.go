package models

import "time"

// Knowledge is a knowledge-base record. Large documents are stored as one
// main record plus chunk records; chunks reference the main record via
// OriginalID and carry their position in ChunkIndex.
type Knowledge struct {
	ID         string    `bson:"_id" json:"id"`
	AgentID    string    `bson:"agentId,omitempty" json:"agentId,omitempty"`
	Content    Content   `bson:"content" json:"content"`
	Embedding  []float32 `bson:"embedding,omitempty" json:"embedding,omitempty"`
	IsMain     bool      `bson:"isMain" json:"isMain"`
	IsChunk    bool      `bson:"isChunk" json:"isChunk"`
	IsShared   bool      `bson:"isShared" json:"isShared"`
	OriginalID string    `bson:"originalId,omitempty" json:"originalId,omitempty"`
	ChunkIndex *int      `bson:"chunkIndex,omitempty" json:"chunkIndex,omitempty"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}
