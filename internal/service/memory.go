// Package service implements the write and query flows on top of the store
// and the search engine: deduplicated memory writes, chunked knowledge
// ingestion, and cached hybrid search.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/engram-ai/engram-go/internal/embedding"
	"github.com/engram-ai/engram-go/internal/metrics"
	"github.com/engram-ai/engram-go/internal/models"
	"github.com/engram-ai/engram-go/internal/search"
)

// Dedup gate parameters: a new memory is a duplicate when an existing unique
// memory in the same agent/room scope has vector similarity >= dedupThreshold.
const (
	dedupThreshold = 0.95
	dedupCount     = 1
)

// Cached-embedding lookup parameters. Texts are compared on a bounded prefix
// so pathological inputs cannot blow up the edit-distance matrix.
const (
	embeddingLookupLimit  = 100
	embeddingLookupPrefix = 200
	embeddingLookupCutoff = 10
)

// memoryStore is the slice of the db client the memory service needs.
type memoryStore interface {
	InsertMemory(ctx context.Context, mem models.Memory) error
	GetMemory(ctx context.Context, id string) (models.Memory, error)
	ListMemories(ctx context.Context, agentID, roomID string, limit int64) ([]models.Memory, error)
	RecentMemories(ctx context.Context, agentID string, limit int64) ([]models.Memory, error)
	DeleteMemory(ctx context.Context, id string) error
	CountMemories(ctx context.Context, agentID string) (int64, error)
}

// MemoryService handles memory writes with the dedup gate and memory search.
type MemoryService struct {
	store    memoryStore
	coll     search.Collection
	engine   *search.Engine
	embedder embedding.Embedder
	lev      *search.Levenshtein
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// NewMemoryService creates a memory service. embedder may be nil when every
// caller supplies embeddings itself.
func NewMemoryService(store memoryStore, coll search.Collection, engine *search.Engine, embedder embedding.Embedder, logger *slog.Logger, collector *metrics.Collector) *MemoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryService{
		store:    store,
		coll:     coll,
		engine:   engine,
		embedder: embedder,
		lev:      search.NewLevenshtein(),
		logger:   logger,
		metrics:  collector,
	}
}

// CreateMemoryInput describes a memory to store. ID is optional; Embedding
// is optional when an embedder is configured.
type CreateMemoryInput struct {
	ID        string
	AgentID   string
	RoomID    string
	Text      string
	Metadata  map[string]any
	Embedding []float32
}

// Create stores a memory, settling its Unique flag through the dedup gate
// before the write. A memory without an embedding is always unique: there is
// nothing to compare it against.
func (s *MemoryService) Create(ctx context.Context, in CreateMemoryInput) (models.Memory, error) {
	mem := models.Memory{
		ID:      in.ID,
		AgentID: in.AgentID,
		RoomID:  in.RoomID,
		Content: models.Content{
			Text:     in.Text,
			Metadata: in.Metadata,
		},
		Embedding: in.Embedding,
		CreatedAt: time.Now().UTC(),
	}
	if mem.ID == "" {
		mem.ID = uuid.NewString()
	}

	if mem.Embedding == nil {
		emb, err := s.resolveEmbedding(ctx, in.AgentID, in.Text)
		if err != nil {
			return models.Memory{}, err
		}
		mem.Embedding = emb
	}

	mem.Unique = s.checkUnique(ctx, mem)

	if err := s.store.InsertMemory(ctx, mem); err != nil {
		return models.Memory{}, err
	}
	s.logger.Debug("memory stored", "id", mem.ID, "agent", mem.AgentID, "unique", mem.Unique)
	return mem, nil
}

// checkUnique runs the dedup gate. The gate is best-effort: a failed search
// never blocks the write, it just marks the memory unique.
func (s *MemoryService) checkUnique(ctx context.Context, mem models.Memory) bool {
	if len(mem.Embedding) == 0 {
		return true
	}

	start := time.Now()
	hits, err := s.engine.Search(ctx, s.coll, search.Query{
		Embedding:      mem.Embedding,
		AgentID:        mem.AgentID,
		RoomID:         mem.RoomID,
		UniqueOnly:     true,
		MatchThreshold: dedupThreshold,
		MatchCount:     dedupCount,
	})
	s.metrics.RecordTiming(metrics.OpDedup, time.Since(start))
	if err != nil {
		s.logger.Warn("dedup check failed, storing as unique", "id", mem.ID, "error", err)
		return true
	}
	return len(hits) == 0
}

// resolveEmbedding finds an embedding for text, preferring a reuse from a
// near-identical stored memory over a round-trip to the embedder.
func (s *MemoryService) resolveEmbedding(ctx context.Context, agentID, text string) ([]float32, error) {
	if text == "" {
		return nil, nil
	}

	if emb := s.cachedEmbedding(ctx, agentID, text); emb != nil {
		return emb, nil
	}

	if s.embedder == nil {
		return nil, nil
	}
	start := time.Now()
	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed memory: %w", err)
	}
	s.metrics.RecordTiming(metrics.OpEmbedding, time.Since(start))
	return emb, nil
}

// cachedEmbedding ranks the agent's recent memories by edit distance to text
// and reuses the closest embedding when the texts are near-identical.
func (s *MemoryService) cachedEmbedding(ctx context.Context, agentID, text string) []float32 {
	recent, err := s.store.RecentMemories(ctx, agentID, embeddingLookupLimit)
	if err != nil {
		s.logger.Debug("cached-embedding lookup failed", "error", err)
		return nil
	}
	if len(recent) == 0 {
		return nil
	}

	needle := prefix(text, embeddingLookupPrefix)

	type ranked struct {
		distance  int
		embedding []float32
	}
	candidates := make([]ranked, 0, len(recent))
	for _, mem := range recent {
		if len(mem.Embedding) == 0 {
			continue
		}
		d := s.lev.Distance(needle, prefix(mem.Content.Text, embeddingLookupPrefix))
		candidates = append(candidates, ranked{distance: d, embedding: mem.Embedding})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if candidates[0].distance > embeddingLookupCutoff {
		return nil
	}
	return candidates[0].embedding
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// SearchMemoriesInput describes a memory search. Embedding is optional when
// an embedder is configured; Text drives both embedding and lexical boosts.
type SearchMemoriesInput struct {
	AgentID        string
	RoomID         string
	Text           string
	Embedding      []float32
	UniqueOnly     bool
	MatchThreshold float64
	MatchCount     int
}

// Search runs a hybrid similarity search over the agent's memories.
func (s *MemoryService) Search(ctx context.Context, in SearchMemoriesInput) ([]search.ScoredCandidate, error) {
	emb := in.Embedding
	if emb == nil {
		if s.embedder == nil {
			return nil, fmt.Errorf("memory search needs an embedding or a configured embedder")
		}
		start := time.Now()
		var err error
		emb, err = s.embedder.Embed(ctx, in.Text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		s.metrics.RecordTiming(metrics.OpEmbedding, time.Since(start))
	}

	return s.engine.Search(ctx, s.coll, search.Query{
		Embedding:      emb,
		Text:           in.Text,
		AgentID:        in.AgentID,
		RoomID:         in.RoomID,
		UniqueOnly:     in.UniqueOnly,
		MatchThreshold: in.MatchThreshold,
		MatchCount:     in.MatchCount,
	})
}

// Get fetches a memory by ID.
func (s *MemoryService) Get(ctx context.Context, id string) (models.Memory, error) {
	return s.store.GetMemory(ctx, id)
}

// List returns the agent's memories, optionally scoped to a room.
func (s *MemoryService) List(ctx context.Context, agentID, roomID string, limit int64) ([]models.Memory, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListMemories(ctx, agentID, roomID, limit)
}

// Delete removes a memory by ID.
func (s *MemoryService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteMemory(ctx, id)
}

// Count counts the agent's memories.
func (s *MemoryService) Count(ctx context.Context, agentID string) (int64, error) {
	return s.store.CountMemories(ctx, agentID)
}
