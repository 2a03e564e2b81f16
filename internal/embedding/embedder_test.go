package embedding_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engram-ai/engram-go/internal/embedding"
)

func TestNewEmbedderFactoryVoyage(t *testing.T) {
	embedder, err := embedding.New(embedding.Config{
		Provider:     embedding.ProviderVoyage,
		VoyageAPIKey: "sk-test",
	})
	require.NoError(t, err, "should create Voyage embedder via factory")
	assert.IsType(t, &embedding.VoyageClient{}, embedder)
	assert.Equal(t, embedding.DefaultVoyageModel, embedder.Model())
	assert.Equal(t, embedding.DefaultVoyageDimension, embedder.Dimension())
}

func TestNewEmbedderFactoryMock(t *testing.T) {
	embedder, err := embedding.New(embedding.Config{
		Provider:          embedding.ProviderMock,
		ExpectedDimension: 16,
	})
	require.NoError(t, err)
	assert.IsType(t, &embedding.Mock{}, embedder)
	assert.Equal(t, 16, embedder.Dimension())
}
