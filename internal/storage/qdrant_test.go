//go:build integration

package storage

import (
	"context"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 8

// setupTestStorage connects to a local Qdrant. Skips test if Qdrant is not running.
func setupTestStorage(t *testing.T) *QdrantStorage {
	storage, err := NewQdrantStorage(context.Background(), QdrantConfig{
		Host:      "localhost",
		Port:      6334,
		Dimension: testDimension,
	})
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

func createTestIndex(t *testing.T, storage *QdrantStorage) string {
	name := "test-" + uuid.NewString()
	err := storage.CreateIndex(context.Background(), IndexDescriptor{
		Name:      name,
		Dimension: testDimension,
		Metric:    MetricCosine,
	})
	require.NoError(t, err, "Failed to create index")
	t.Cleanup(func() { storage.client.DeleteCollection(context.Background(), name) })
	return name
}

func testRecord() VectorRecord {
	values := make([]float32, testDimension)
	for i := range values {
		values[i] = 0.1 * float32(i+1)
	}
	return VectorRecord{
		ID:     uuid.NewString(),
		Values: values,
		Metadata: map[string]any{
			"text":        "chunk text",
			"loc":         `{"start":0,"end":10,"lines":{"from":1,"to":1}}`,
			"chunk_index": 0,
		},
	}
}

func TestCreateAndListIndex(t *testing.T) {
	storage := setupTestStorage(t)
	name := createTestIndex(t, storage)

	names, err := storage.ListIndexes(context.Background())
	require.NoError(t, err)
	assert.True(t, slices.Contains(names, name), "created index should be listed")

	// Creating the same name again must fail
	err = storage.CreateIndex(context.Background(), IndexDescriptor{Name: name, Dimension: testDimension})
	assert.Error(t, err)
}

func TestUpsertAndCount(t *testing.T) {
	storage := setupTestStorage(t)
	name := createTestIndex(t, storage)
	ctx := context.Background()

	records := make([]VectorRecord, 25)
	for i := range records {
		records[i] = testRecord()
	}

	require.NoError(t, storage.Upsert(ctx, name, records))

	count, err := storage.CountVectors(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), count)
}

func TestDimensionValidation(t *testing.T) {
	storage := setupTestStorage(t)
	name := createTestIndex(t, storage)

	wrong := testRecord()
	wrong.Values = make([]float32, 3)

	err := storage.Upsert(context.Background(), name, []VectorRecord{wrong})
	assert.ErrorIs(t, err, ErrDimensionMismatch, "Should reject wrong embedding dimension")
}

func TestInvalidMetadata(t *testing.T) {
	storage := setupTestStorage(t)
	name := createTestIndex(t, storage)

	bad := testRecord()
	bad.Metadata["handler"] = func() {}

	err := storage.Upsert(context.Background(), name, []VectorRecord{bad})
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}
