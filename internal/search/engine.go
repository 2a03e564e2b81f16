package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/engram-ai/engram-go/internal/metrics"
	"github.com/engram-ai/engram-go/internal/models"
)

// Collection is the slice of store surface the engine needs. Both methods
// return raw documents so the engine owns all decoding and normalization.
type Collection interface {
	Aggregate(ctx context.Context, pipeline []bson.D) ([]bson.Raw, error)
	Find(ctx context.Context, filter bson.D, limit int64) ([]bson.Raw, error)
}

// Query is a single similarity-search request.
type Query struct {
	Embedding []float32
	Text      string

	AgentID    string
	RoomID     string
	UniqueOnly bool

	// IncludeShared widens the agent scope to records marked shared.
	IncludeShared bool

	// MatchThreshold is the minimum vector similarity for outright
	// acceptance; MatchCount caps the result set.
	MatchThreshold float64
	MatchCount     int
}

// ErrSearchFailed reports that both the native and fallback paths failed for
// the same query.
var ErrSearchFailed = errors.New("search: native and fallback paths both failed")

const (
	defaultCandidateLimit = 1000
	// numCandidates controls the breadth of the approximate nearest-neighbor
	// scan relative to the requested limit.
	candidateMultiplier = 10
)

// Engine runs hybrid similarity searches, choosing between the store's
// native vector search and the application-level fallback based on the
// shared capability state.
type Engine struct {
	caps           *CapabilityState
	index          string
	candidateLimit int64
	logger         *slog.Logger
	metrics        *metrics.Collector
}

// NewEngine creates an engine. index names the native vector-search index;
// candidateLimit bounds the fallback candidate fetch (<= 0 uses the default).
func NewEngine(caps *CapabilityState, index string, candidateLimit int64, logger *slog.Logger, collector *metrics.Collector) *Engine {
	if candidateLimit <= 0 {
		candidateLimit = defaultCandidateLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		caps:           caps,
		index:          index,
		candidateLimit: candidateLimit,
		logger:         logger,
		metrics:        collector,
	}
}

// Search runs the query against coll. When the capability state is native,
// the store-side vector search runs first; any execution failure downgrades
// the capability and transparently retries on the fallback path, so a native
// failure is invisible to the caller unless the fallback also fails.
func (e *Engine) Search(ctx context.Context, coll Collection, q Query) ([]ScoredCandidate, error) {
	if q.MatchCount <= 0 {
		q.MatchCount = 10
	}

	if e.caps.Current() == CapabilityNative {
		start := time.Now()
		results, err := e.searchNative(ctx, coll, q)
		if err == nil {
			e.metrics.RecordTiming(metrics.OpNativeSearch, time.Since(start))
			return results, nil
		}

		e.logger.Error("native vector search failed, retrying on fallback", "error", err)
		e.metrics.RecordNativeFailure()
		e.caps.Downgrade(e.logger, fmt.Sprintf("native query failed: %v", err))

		fallback, ferr := e.searchFallback(ctx, coll, q)
		if ferr != nil {
			return nil, fmt.Errorf("%w: native: %v, fallback: %v", ErrSearchFailed, err, ferr)
		}
		return fallback, nil
	}

	start := time.Now()
	results, err := e.searchFallback(ctx, coll, q)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordTiming(metrics.OpFallbackSearch, time.Since(start))
	return results, nil
}

// searchNative runs the store-side approximate vector search, then applies
// the same hybrid re-ranking as the fallback path so both paths agree on
// ordering and acceptance.
func (e *Engine) searchNative(ctx context.Context, coll Collection, q Query) ([]ScoredCandidate, error) {
	queryVector := make(bson.A, len(q.Embedding))
	for i, v := range q.Embedding {
		queryVector[i] = float64(v)
	}

	// Over-fetch by 2x so the hybrid re-rank has candidates to promote
	// past pure vector ordering.
	fetch := q.MatchCount * 2
	stage := bson.D{
		{Key: "index", Value: e.index},
		{Key: "path", Value: "embedding"},
		{Key: "queryVector", Value: queryVector},
		{Key: "numCandidates", Value: fetch * candidateMultiplier},
		{Key: "limit", Value: fetch},
	}
	if filter := structuralFilter(q, false); len(filter) > 0 {
		stage = append(stage, bson.E{Key: "filter", Value: filter})
	}

	pipeline := []bson.D{
		{{Key: "$vectorSearch", Value: stage}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "vectorScore", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}

	docs, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector search aggregate: %w", err)
	}

	candidates := make([]ScoredCandidate, 0, len(docs))
	for _, doc := range docs {
		rec, err := models.DecodeRecord(doc)
		if err != nil {
			// One malformed document never fails the whole query.
			e.logger.Warn("dropping malformed search candidate", "error", err)
			continue
		}
		score, ok := doc.Lookup("vectorScore").DoubleOK()
		if !ok {
			e.logger.Warn("dropping candidate without vector score", "id", rec.ID)
			continue
		}
		candidates = append(candidates, ScoredCandidate{Record: rec, VectorScore: score})
	}

	return RankCandidates(candidates, q.Text, q.MatchThreshold, q.MatchCount), nil
}

// searchFallback fetches a bounded candidate set and ranks it in-process
// with cosine similarity plus the shared hybrid re-rank.
func (e *Engine) searchFallback(ctx context.Context, coll Collection, q Query) ([]ScoredCandidate, error) {
	docs, err := coll.Find(ctx, structuralFilter(q, true), e.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("fallback candidate fetch: %w", err)
	}

	candidates := make([]ScoredCandidate, 0, len(docs))
	for _, doc := range docs {
		rec, err := models.DecodeRecord(doc)
		if err != nil {
			e.logger.Warn("dropping malformed search candidate", "error", err)
			continue
		}
		score := CosineSimilarity(q.Embedding, rec.Embedding)
		if math.IsNaN(score) {
			// Zero magnitude or dimension mismatch: lowest possible rank.
			continue
		}
		candidates = append(candidates, ScoredCandidate{Record: rec, VectorScore: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].VectorScore > candidates[j].VectorScore
	})
	if fetch := q.MatchCount * 2; len(candidates) > fetch {
		candidates = candidates[:fetch]
	}

	return RankCandidates(candidates, q.Text, q.MatchThreshold, q.MatchCount), nil
}

// structuralFilter builds the shared agent/room/unique filter. The fallback
// path additionally requires an embedding to compare against.
func structuralFilter(q Query, requireEmbedding bool) bson.D {
	var filter bson.D
	if q.AgentID != "" {
		if q.IncludeShared {
			filter = append(filter, bson.E{Key: "$or", Value: bson.A{
				bson.D{{Key: "agentId", Value: q.AgentID}},
				bson.D{{Key: "isShared", Value: true}},
			}})
		} else {
			filter = append(filter, bson.E{Key: "agentId", Value: q.AgentID})
		}
	}
	if q.RoomID != "" {
		filter = append(filter, bson.E{Key: "roomId", Value: q.RoomID})
	}
	if q.UniqueOnly {
		filter = append(filter, bson.E{Key: "unique", Value: true})
	}
	if requireEmbedding {
		filter = append(filter, bson.E{Key: "embedding", Value: bson.D{{Key: "$exists", Value: true}}})
	}
	return filter
}
