package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestVectorIndexDefinition(t *testing.T) {
	def := vectorIndexDefinition(1536)

	require.Len(t, def, 1)
	require.Equal(t, "fields", def[0].Key)
	fields, ok := def[0].Value.(bson.A)
	require.True(t, ok)

	vector, ok := fields[0].(bson.D)
	require.True(t, ok)
	assert.Equal(t, bson.D{
		{Key: "type", Value: "vector"},
		{Key: "path", Value: "embedding"},
		{Key: "numDimensions", Value: 1536},
		{Key: "similarity", Value: "cosine"},
	}, vector)

	// Every field the engine's queries filter on must be declared as a
	// filter field, or the first filtered $vectorSearch errors and the
	// connection downgrades for good.
	filterPaths := make(map[string]bool)
	for _, f := range fields[1:] {
		field, ok := f.(bson.D)
		require.True(t, ok)
		require.Len(t, field, 2)
		assert.Equal(t, bson.E{Key: "type", Value: "filter"}, field[0])
		filterPaths[field[1].Value.(string)] = true
	}
	for _, path := range []string{"agentId", "roomId", "unique", "isShared"} {
		assert.True(t, filterPaths[path], "missing filter field %s", path)
	}
}
