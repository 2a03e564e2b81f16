package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engram-ai/engram-go/internal/db"
	"github.com/engram-ai/engram-go/internal/embedding"
	"github.com/engram-ai/engram-go/internal/models"
	"github.com/engram-ai/engram-go/internal/search"
)

// fakeKnowledgeStore records inserts and reports duplicates by ID.
type fakeKnowledgeStore struct {
	records map[string]models.Knowledge
}

func newFakeKnowledgeStore() *fakeKnowledgeStore {
	return &fakeKnowledgeStore{records: make(map[string]models.Knowledge)}
}

func (f *fakeKnowledgeStore) InsertKnowledgeIfAbsent(_ context.Context, k models.Knowledge) (db.InsertOutcome, error) {
	if _, ok := f.records[k.ID]; ok {
		return db.AlreadyPresent, nil
	}
	f.records[k.ID] = k
	return db.Inserted, nil
}

func (f *fakeKnowledgeStore) GetKnowledge(_ context.Context, id string) (models.Knowledge, error) {
	k, ok := f.records[id]
	if !ok {
		return models.Knowledge{}, db.ErrNotFound
	}
	return k, nil
}

func (f *fakeKnowledgeStore) RemoveKnowledge(_ context.Context, id string) (int64, error) {
	var removed int64
	for key, k := range f.records {
		if key == id || k.OriginalID == id {
			delete(f.records, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, db.ErrNotFound
	}
	return removed, nil
}

func (f *fakeKnowledgeStore) CountKnowledge(_ context.Context, _ string) (int64, error) {
	return int64(len(f.records)), nil
}

// fakeCache is an in-memory resultCache.
type fakeCache struct {
	entries map[string][]byte
	getErr  error
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (f *fakeCache) CacheGet(_ context.Context, agentID, query string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	v, ok := f.entries[agentID+":"+query]
	return v, ok, nil
}

func (f *fakeCache) CacheSet(_ context.Context, agentID, query string, value []byte) error {
	f.entries[agentID+":"+query] = value
	f.sets++
	return nil
}

func newKnowledgeService(store *fakeKnowledgeStore, cache *fakeCache, coll search.Collection) *KnowledgeService {
	return NewKnowledgeService(store, cache, coll, fallbackEngine(), embedding.NewMock(8), nil, nil)
}

func TestCreateShortDocumentSingleRecord(t *testing.T) {
	store := newFakeKnowledgeStore()
	svc := newKnowledgeService(store, nil, &fakeCollection{})

	result, err := svc.Create(context.Background(), CreateKnowledgeInput{
		AgentID: "agent-1",
		Text:    "a short note, well under the chunking threshold",
	})
	require.NoError(t, err)
	assert.Zero(t, result.ChunksCreated)
	require.Len(t, store.records, 1)

	main := store.records[result.MainID]
	assert.True(t, main.IsMain)
	assert.False(t, main.IsChunk)
	assert.NotEmpty(t, main.Embedding)
}

func TestCreateLongDocumentChunks(t *testing.T) {
	store := newFakeKnowledgeStore()
	svc := newKnowledgeService(store, nil, &fakeCollection{})

	text := strings.Repeat("Paragraphs of real content fill this document end to end. ", 60)
	result, err := svc.Create(context.Background(), CreateKnowledgeInput{
		AgentID: "agent-1",
		Text:    text,
	})
	require.NoError(t, err)
	assert.Greater(t, result.ChunksCreated, 1)
	assert.Len(t, store.records, result.ChunksCreated+1)

	var chunks int
	for _, k := range store.records {
		if !k.IsChunk {
			continue
		}
		chunks++
		assert.Equal(t, result.MainID, k.OriginalID)
		require.NotNil(t, k.ChunkIndex)
		assert.NotEmpty(t, k.Embedding)
	}
	assert.Equal(t, result.ChunksCreated, chunks)
}

func TestCreateReingestIsIdempotent(t *testing.T) {
	store := newFakeKnowledgeStore()
	svc := newKnowledgeService(store, nil, &fakeCollection{})

	text := strings.Repeat("Stable content produces stable chunk identifiers every time. ", 60)
	in := CreateKnowledgeInput{ID: "doc-1", AgentID: "agent-1", Text: text}

	first, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Greater(t, first.ChunksCreated, 0)

	second, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Zero(t, second.ChunksCreated, "re-ingest must not duplicate chunks")
	assert.Equal(t, first.ChunksCreated, second.ChunksSkipped)
}

func TestCreateRejectsEmptyText(t *testing.T) {
	svc := newKnowledgeService(newFakeKnowledgeStore(), nil, &fakeCollection{})
	_, err := svc.Create(context.Background(), CreateKnowledgeInput{AgentID: "agent-1"})
	require.Error(t, err)
}

func TestSearchCacheHitSkipsEngine(t *testing.T) {
	cache := newFakeCache()
	cached := []search.ScoredCandidate{{
		Record:      models.SearchableRecord{ID: "cached-hit", Content: models.Content{Text: "from cache"}},
		VectorScore: 0.99,
	}}
	value, err := json.Marshal(cached)
	require.NoError(t, err)
	cache.entries["agent-1:repeat query"] = value

	// A collection that errors proves the engine was never consulted.
	coll := &fakeCollection{findErr: errors.New("must not run a live search")}
	svc := newKnowledgeService(newFakeKnowledgeStore(), cache, coll)

	results, err := svc.Search(context.Background(), SearchKnowledgeInput{
		AgentID: "agent-1",
		Text:    "repeat query",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "cached-hit", results[0].Record.ID)
}

func TestSearchCacheMissRunsAndStores(t *testing.T) {
	cache := newFakeCache()
	coll := &fakeCollection{findDocs: nil}
	svc := newKnowledgeService(newFakeKnowledgeStore(), cache, coll)

	results, err := svc.Search(context.Background(), SearchKnowledgeInput{
		AgentID: "agent-1",
		Text:    "fresh query",
	})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1, cache.sets, "miss populates the cache")
}

func TestSearchCacheFailureFallsThrough(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = errors.New("cache store down")
	svc := newKnowledgeService(newFakeKnowledgeStore(), cache, &fakeCollection{})

	_, err := svc.Search(context.Background(), SearchKnowledgeInput{
		AgentID: "agent-1",
		Text:    "query",
	})
	require.NoError(t, err, "a broken cache must not break search")
}

func TestSearchEmptyTextBypassesCache(t *testing.T) {
	cache := newFakeCache()
	svc := newKnowledgeService(newFakeKnowledgeStore(), cache, &fakeCollection{})

	_, err := svc.Search(context.Background(), SearchKnowledgeInput{
		AgentID:   "agent-1",
		Embedding: []float32{1, 0, 0},
	})
	require.NoError(t, err)
	assert.Zero(t, cache.sets, "queries without text are never cached")
}

func TestRemoveKnowledgePassesThrough(t *testing.T) {
	store := newFakeKnowledgeStore()
	svc := newKnowledgeService(store, nil, &fakeCollection{})

	_, err := svc.Create(context.Background(), CreateKnowledgeInput{ID: "doc-x", AgentID: "a", Text: "short"})
	require.NoError(t, err)

	removed, err := svc.Remove(context.Background(), "doc-x")
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = svc.Remove(context.Background(), "doc-x")
	assert.ErrorIs(t, err, db.ErrNotFound)
}
