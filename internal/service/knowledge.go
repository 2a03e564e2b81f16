package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/engram-ai/engram-go/internal/db"
	"github.com/engram-ai/engram-go/internal/embedding"
	"github.com/engram-ai/engram-go/internal/metrics"
	"github.com/engram-ai/engram-go/internal/models"
	"github.com/engram-ai/engram-go/internal/parser"
	"github.com/engram-ai/engram-go/internal/search"
)

// DefaultKnowledgeThreshold is the vector acceptance threshold for knowledge
// search when the caller does not pick one.
const DefaultKnowledgeThreshold = 0.85

// knowledgeStore is the slice of the db client the knowledge service needs.
type knowledgeStore interface {
	InsertKnowledgeIfAbsent(ctx context.Context, k models.Knowledge) (db.InsertOutcome, error)
	GetKnowledge(ctx context.Context, id string) (models.Knowledge, error)
	RemoveKnowledge(ctx context.Context, id string) (int64, error)
	CountKnowledge(ctx context.Context, agentID string) (int64, error)
}

// resultCache is the read-through cache for search results.
type resultCache interface {
	CacheGet(ctx context.Context, agentID, query string) ([]byte, bool, error)
	CacheSet(ctx context.Context, agentID, query string, value []byte) error
}

// KnowledgeService handles chunked knowledge ingestion and cached search.
type KnowledgeService struct {
	store    knowledgeStore
	cache    resultCache
	coll     search.Collection
	engine   *search.Engine
	embedder embedding.Embedder
	chunkCfg parser.ChunkConfig
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// NewKnowledgeService creates a knowledge service. cache may be nil to
// disable result caching.
func NewKnowledgeService(store knowledgeStore, cache resultCache, coll search.Collection, engine *search.Engine, embedder embedding.Embedder, logger *slog.Logger, collector *metrics.Collector) *KnowledgeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &KnowledgeService{
		store:    store,
		cache:    cache,
		coll:     coll,
		engine:   engine,
		embedder: embedder,
		chunkCfg: parser.DefaultChunkConfig(),
		logger:   logger,
		metrics:  collector,
	}
}

// CreateKnowledgeInput describes a knowledge document to ingest.
type CreateKnowledgeInput struct {
	ID       string
	AgentID  string
	Text     string
	Metadata map[string]any
	IsShared bool
}

// CreateResult summarizes a knowledge ingestion.
type CreateResult struct {
	MainID        string
	ChunksCreated int
	ChunksSkipped int
}

// Create ingests a knowledge document: one main record, plus chunk records
// when the text exceeds the chunking threshold. Chunk IDs are derived from
// the main ID and chunk position, so re-ingesting the same document skips
// chunks that already exist instead of duplicating or failing.
func (s *KnowledgeService) Create(ctx context.Context, in CreateKnowledgeInput) (CreateResult, error) {
	if in.Text == "" {
		return CreateResult{}, fmt.Errorf("knowledge text must not be empty")
	}

	mainID := in.ID
	if mainID == "" {
		mainID = uuid.NewString()
	}
	now := time.Now().UTC()

	chunks := parser.Chunk(in.Text, s.chunkCfg)
	chunked := len(chunks) > 1

	mainEmbedding, err := s.embed(ctx, in.Text)
	if err != nil {
		return CreateResult{}, err
	}

	main := models.Knowledge{
		ID:      mainID,
		AgentID: in.AgentID,
		Content: models.Content{
			Text:     in.Text,
			Metadata: in.Metadata,
		},
		Embedding: mainEmbedding,
		IsMain:    true,
		IsShared:  in.IsShared,
		CreatedAt: now,
	}
	if _, err := s.store.InsertKnowledgeIfAbsent(ctx, main); err != nil {
		return CreateResult{}, err
	}

	result := CreateResult{MainID: mainID}
	if !chunked {
		return result, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := s.embedBatch(ctx, texts)
	if err != nil {
		return result, err
	}

	mainUUID, err := uuid.Parse(mainID)
	if err != nil {
		// Non-UUID main IDs still get deterministic chunk IDs, just from a
		// fixed namespace instead.
		mainUUID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(mainID))
	}

	for i, chunk := range chunks {
		idx := chunk.Position
		k := models.Knowledge{
			ID:      uuid.NewSHA1(mainUUID, []byte(fmt.Sprintf("chunk-%d", idx))).String(),
			AgentID: in.AgentID,
			Content: models.Content{
				Text: chunk.Content,
			},
			IsChunk:    true,
			IsShared:   in.IsShared,
			OriginalID: mainID,
			ChunkIndex: &idx,
			CreatedAt:  now,
		}
		if embeddings != nil {
			k.Embedding = embeddings[i]
		}

		outcome, err := s.store.InsertKnowledgeIfAbsent(ctx, k)
		if err != nil {
			return result, fmt.Errorf("chunk %d: %w", idx, err)
		}
		switch outcome {
		case db.Inserted:
			result.ChunksCreated++
		case db.AlreadyPresent:
			result.ChunksSkipped++
		}
	}

	s.logger.Info("knowledge ingested",
		"id", mainID, "chunks", result.ChunksCreated, "skipped", result.ChunksSkipped)
	return result, nil
}

func (s *KnowledgeService) embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, nil
	}
	start := time.Now()
	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed knowledge: %w", err)
	}
	s.metrics.RecordTiming(metrics.OpEmbedding, time.Since(start))
	return emb, nil
}

func (s *KnowledgeService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.embedder == nil {
		return nil, nil
	}
	start := time.Now()
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	s.metrics.RecordTiming(metrics.OpEmbedding, time.Since(start))
	return embeddings, nil
}

// SearchKnowledgeInput describes a knowledge search.
type SearchKnowledgeInput struct {
	AgentID        string
	Text           string
	Embedding      []float32
	MatchThreshold float64
	MatchCount     int
}

// Search runs a hybrid search over knowledge with a read-through result
// cache keyed by agent and query text. A cache failure falls through to a
// live search; queries without text bypass the cache entirely.
func (s *KnowledgeService) Search(ctx context.Context, in SearchKnowledgeInput) ([]search.ScoredCandidate, error) {
	if in.MatchThreshold == 0 {
		in.MatchThreshold = DefaultKnowledgeThreshold
	}

	useCache := s.cache != nil && in.Text != ""
	if useCache {
		value, ok, err := s.cache.CacheGet(ctx, in.AgentID, in.Text)
		if err != nil {
			s.logger.Warn("cache read failed", "error", err)
		} else if ok {
			var cached []search.ScoredCandidate
			if err := json.Unmarshal(value, &cached); err == nil {
				s.metrics.RecordCacheHit()
				return cached, nil
			}
			s.logger.Warn("dropping undecodable cache entry", "agent", in.AgentID)
		}
		s.metrics.RecordCacheMiss()
	}

	emb := in.Embedding
	if emb == nil {
		if s.embedder == nil {
			return nil, fmt.Errorf("knowledge search needs an embedding or a configured embedder")
		}
		var err error
		emb, err = s.embed(ctx, in.Text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
	}

	results, err := s.engine.Search(ctx, s.coll, search.Query{
		Embedding:      emb,
		Text:           in.Text,
		AgentID:        in.AgentID,
		IncludeShared:  true,
		MatchThreshold: in.MatchThreshold,
		MatchCount:     in.MatchCount,
	})
	if err != nil {
		return nil, err
	}

	if useCache {
		if value, err := json.Marshal(results); err == nil {
			if err := s.cache.CacheSet(ctx, in.AgentID, in.Text, value); err != nil {
				s.logger.Warn("cache write failed", "error", err)
			}
		}
	}

	return results, nil
}

// Get fetches a knowledge record by ID.
func (s *KnowledgeService) Get(ctx context.Context, id string) (models.Knowledge, error) {
	return s.store.GetKnowledge(ctx, id)
}

// Remove deletes a knowledge record and its chunks, returning how many
// documents went away.
func (s *KnowledgeService) Remove(ctx context.Context, id string) (int64, error) {
	return s.store.RemoveKnowledge(ctx, id)
}

// Count counts knowledge records visible to the agent.
func (s *KnowledgeService) Count(ctx context.Context, agentID string) (int64, error) {
	return s.store.CountKnowledge(ctx, agentID)
}
