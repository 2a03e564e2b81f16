package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestClassifyInsert(t *testing.T) {
	outcome, err := classifyInsert(nil)
	require.NoError(t, err)
	assert.Equal(t, Inserted, outcome)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	outcome, err = classifyInsert(dup)
	require.NoError(t, err, "a duplicate key is success: the document is there")
	assert.Equal(t, AlreadyPresent, outcome)

	boom := errors.New("connection reset")
	outcome, err = classifyInsert(boom)
	require.Error(t, err)
	assert.Equal(t, InsertFailed, outcome)
}

func TestInsertOutcomeString(t *testing.T) {
	assert.Equal(t, "inserted", Inserted.String())
	assert.Equal(t, "already-present", AlreadyPresent.String())
	assert.Equal(t, "failed", InsertFailed.String())
}

func TestIsIndexExistsError(t *testing.T) {
	assert.False(t, isIndexExistsError(nil))
	assert.False(t, isIndexExistsError(errors.New("network unreachable")))

	assert.True(t, isIndexExistsError(mongo.CommandError{Code: 68}))
	assert.True(t, isIndexExistsError(mongo.CommandError{Code: 85}))
	assert.True(t, isIndexExistsError(errors.New("index already exists")))
}
