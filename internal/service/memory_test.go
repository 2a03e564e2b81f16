package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/engram-ai/engram-go/internal/models"
	"github.com/engram-ai/engram-go/internal/search"
)

// fakeMemoryStore keeps memories in a map and records inserts.
type fakeMemoryStore struct {
	memories map[string]models.Memory
	inserted []models.Memory
	recent   []models.Memory
}

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{memories: make(map[string]models.Memory)}
}

func (f *fakeMemoryStore) InsertMemory(_ context.Context, mem models.Memory) error {
	f.memories[mem.ID] = mem
	f.inserted = append(f.inserted, mem)
	return nil
}

func (f *fakeMemoryStore) GetMemory(_ context.Context, id string) (models.Memory, error) {
	mem, ok := f.memories[id]
	if !ok {
		return models.Memory{}, errors.New("not found")
	}
	return mem, nil
}

func (f *fakeMemoryStore) ListMemories(_ context.Context, _, _ string, _ int64) ([]models.Memory, error) {
	return f.recent, nil
}

func (f *fakeMemoryStore) RecentMemories(_ context.Context, _ string, _ int64) ([]models.Memory, error) {
	return f.recent, nil
}

func (f *fakeMemoryStore) DeleteMemory(_ context.Context, id string) error {
	delete(f.memories, id)
	return nil
}

func (f *fakeMemoryStore) CountMemories(_ context.Context, _ string) (int64, error) {
	return int64(len(f.memories)), nil
}

// fakeCollection serves scripted fallback candidates to the search engine.
type fakeCollection struct {
	findDocs []bson.Raw
	findErr  error
}

func (f *fakeCollection) Aggregate(_ context.Context, _ []bson.D) ([]bson.Raw, error) {
	return nil, errors.New("native path not scripted")
}

func (f *fakeCollection) Find(_ context.Context, _ bson.D, _ int64) ([]bson.Raw, error) {
	return f.findDocs, f.findErr
}

// failingEmbedder proves a code path never reached for an embedding.
type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedder must not be called")
}
func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedder must not be called")
}
func (failingEmbedder) Model() string  { return "failing" }
func (failingEmbedder) Dimension() int { return 3 }

func memoryDoc(t *testing.T, id, text string, embedding []float64, unique bool) bson.Raw {
	t.Helper()
	emb := make(bson.A, len(embedding))
	for i, v := range embedding {
		emb[i] = v
	}
	raw, err := bson.Marshal(bson.D{
		{Key: "_id", Value: id},
		{Key: "agentId", Value: "agent-1"},
		{Key: "content", Value: bson.D{{Key: "text", Value: text}}},
		{Key: "embedding", Value: emb},
		{Key: "unique", Value: unique},
	})
	require.NoError(t, err)
	return raw
}

func fallbackEngine() *search.Engine {
	caps := search.NewCapabilityState()
	caps.Downgrade(nil, "test")
	return search.NewEngine(caps, "vector_index", 0, slog.Default(), nil)
}

func TestCreateMarksDuplicateNonUnique(t *testing.T) {
	store := newFakeMemoryStore()
	coll := &fakeCollection{findDocs: []bson.Raw{
		memoryDoc(t, "existing", "the same thought", []float64{1, 0, 0}, true),
	}}
	svc := NewMemoryService(store, coll, fallbackEngine(), nil, nil, nil)

	mem, err := svc.Create(context.Background(), CreateMemoryInput{
		AgentID:   "agent-1",
		Text:      "the same thought",
		Embedding: []float32{1, 0, 0},
	})
	require.NoError(t, err)
	assert.False(t, mem.Unique, "identical embedding must fail the dedup gate")
	require.Len(t, store.inserted, 1, "a duplicate is still stored")
}

func TestCreateDistinctIsUnique(t *testing.T) {
	store := newFakeMemoryStore()
	coll := &fakeCollection{findDocs: []bson.Raw{
		memoryDoc(t, "existing", "something else", []float64{0, 1, 0}, true),
	}}
	svc := NewMemoryService(store, coll, fallbackEngine(), nil, nil, nil)

	mem, err := svc.Create(context.Background(), CreateMemoryInput{
		AgentID:   "agent-1",
		Text:      "a fresh thought",
		Embedding: []float32{1, 0, 0},
	})
	require.NoError(t, err)
	assert.True(t, mem.Unique)
	assert.NotEmpty(t, mem.ID, "missing ID is generated")
}

func TestCreateWithoutEmbeddingIsUnique(t *testing.T) {
	store := newFakeMemoryStore()
	coll := &fakeCollection{findErr: errors.New("must not be queried")}
	svc := NewMemoryService(store, coll, fallbackEngine(), nil, nil, nil)

	mem, err := svc.Create(context.Background(), CreateMemoryInput{
		AgentID: "agent-1",
		Text:    "no embedder configured",
	})
	require.NoError(t, err)
	assert.True(t, mem.Unique, "nothing to compare against")
	assert.Nil(t, mem.Embedding)
}

func TestCreateDedupFailureStoresAsUnique(t *testing.T) {
	store := newFakeMemoryStore()
	coll := &fakeCollection{findErr: errors.New("store down")}
	svc := NewMemoryService(store, coll, fallbackEngine(), nil, nil, nil)

	mem, err := svc.Create(context.Background(), CreateMemoryInput{
		AgentID:   "agent-1",
		Text:      "gate is best-effort",
		Embedding: []float32{1, 0, 0},
	})
	require.NoError(t, err, "a broken gate never blocks the write")
	assert.True(t, mem.Unique)
	require.Len(t, store.inserted, 1)
}

func TestCreateReusesNearIdenticalEmbedding(t *testing.T) {
	store := newFakeMemoryStore()
	store.recent = []models.Memory{
		{
			ID:        "prior",
			AgentID:   "agent-1",
			Content:   models.Content{Text: "deploy pipeline runs at noon"},
			Embedding: []float32{0.5, 0.5, 0},
		},
	}
	coll := &fakeCollection{findDocs: nil}

	// The failing embedder proves the lookup satisfied the embedding.
	svc := NewMemoryService(store, coll, fallbackEngine(), failingEmbedder{}, nil, nil)

	mem, err := svc.Create(context.Background(), CreateMemoryInput{
		AgentID: "agent-1",
		Text:    "deploy pipeline runs at noon!",
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5, 0}, mem.Embedding)
}

func TestCreateDistantTextGoesToEmbedder(t *testing.T) {
	store := newFakeMemoryStore()
	store.recent = []models.Memory{
		{
			ID:        "prior",
			AgentID:   "agent-1",
			Content:   models.Content{Text: "a completely unrelated note about groceries"},
			Embedding: []float32{0.5, 0.5, 0},
		},
	}
	svc := NewMemoryService(store, &fakeCollection{}, fallbackEngine(), failingEmbedder{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateMemoryInput{
		AgentID: "agent-1",
		Text:    "kubernetes upgrade scheduled for next tuesday",
	})
	require.Error(t, err, "distant text must reach the (failing) embedder")
}

func TestSearchRequiresEmbeddingSource(t *testing.T) {
	svc := NewMemoryService(newFakeMemoryStore(), &fakeCollection{}, fallbackEngine(), nil, nil, nil)

	_, err := svc.Search(context.Background(), SearchMemoriesInput{
		AgentID: "agent-1",
		Text:    "query",
	})
	require.Error(t, err)
}

func TestSearchReturnsRankedResults(t *testing.T) {
	coll := &fakeCollection{findDocs: []bson.Raw{
		memoryDoc(t, "hit", "contains the query", []float64{1, 0, 0}, true),
		memoryDoc(t, "miss", "unrelated", []float64{0, 1, 0}, true),
	}}
	svc := NewMemoryService(newFakeMemoryStore(), coll, fallbackEngine(), nil, nil, nil)

	results, err := svc.Search(context.Background(), SearchMemoriesInput{
		AgentID:        "agent-1",
		Text:           "query",
		Embedding:      []float32{1, 0, 0},
		MatchThreshold: 0.7,
		MatchCount:     10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "hit", results[0].Record.ID)
}
