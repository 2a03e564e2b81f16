// Package embedding_test contains tests for embedding clients.
package embedding_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engram-ai/engram-go/internal/embedding"
)

func TestNewOllamaClient(t *testing.T) {
	client, err := embedding.NewOllamaClient("", 0)
	require.NoError(t, err, "should create client with default model")
	assert.Equal(t, embedding.DefaultOllamaModel, client.Model())
	assert.Equal(t, embedding.DefaultOllamaDimension, client.Dimension())
}

func TestNewOllamaClientCustomModel(t *testing.T) {
	client, err := embedding.NewOllamaClient("custom-model", 512)
	require.NoError(t, err, "should create client with custom model")
	assert.Equal(t, "custom-model", client.Model())
	assert.Equal(t, 512, client.Dimension())
}

func TestEmbed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := embedding.NewOllamaClient("", 0)
	require.NoError(t, err, "should create client")

	emb, err := client.Embed(ctx, "This is a test sentence for embedding.")
	require.NoError(t, err, "should generate embedding")

	assert.Len(t, emb, client.Dimension(),
		"embedding must be exactly %d dimensions", client.Dimension())

	var sum float32
	for _, v := range emb {
		sum += v * v
	}
	assert.Greater(t, sum, float32(0.1), "embedding should have non-trivial values")
}

func TestEmbedBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := embedding.NewOllamaClient("", 0)
	require.NoError(t, err, "should create client")

	texts := []string{
		"First test sentence.",
		"Second test sentence with different content.",
		"Third sentence about something else entirely.",
	}

	embeddings, err := client.EmbedBatch(ctx, texts)
	require.NoError(t, err, "should generate batch embeddings")

	assert.Len(t, embeddings, len(texts), "should return one embedding per text")

	for i, emb := range embeddings {
		assert.Len(t, emb, client.Dimension(),
			"embedding %d must be exactly %d dimensions", i, client.Dimension())
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	client, err := embedding.NewOllamaClient("", 0)
	require.NoError(t, err, "should create client")

	embeddings, err := client.EmbedBatch(context.Background(), []string{})
	require.NoError(t, err, "should handle empty batch")
	assert.Len(t, embeddings, 0, "should return empty slice")
}

func TestNewEmbedderFactory(t *testing.T) {
	embedder, err := embedding.New(embedding.Config{
		Provider: embedding.ProviderOllama,
	})
	require.NoError(t, err, "should create Ollama embedder via factory")
	assert.Equal(t, embedding.DefaultOllamaModel, embedder.Model())
}

func TestNewEmbedderFactoryUnknownProvider(t *testing.T) {
	_, err := embedding.New(embedding.Config{Provider: "carrier-pigeon"})
	require.Error(t, err)
}

func TestNewEmbedderFactoryVoyageRequiresKey(t *testing.T) {
	_, err := embedding.New(embedding.Config{Provider: embedding.ProviderVoyage})
	require.Error(t, err, "voyage without an API key should fail")
}
