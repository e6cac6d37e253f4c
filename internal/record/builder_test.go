package record

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/vector-ingest/internal/chunking"
)

func testChunks(n int) ([]chunking.Chunk, [][]float32) {
	chunks := make([]chunking.Chunk, n)
	vectors := make([][]float32, n)
	for i := range chunks {
		chunks[i] = chunking.Chunk{
			Index: i,
			Text:  "chunk",
			Location: chunking.Location{
				Start: i * 5,
				End:   i*5 + 5,
				Lines: chunking.Lines{From: i + 1, To: i + 1},
			},
		}
		vectors[i] = []float32{float32(i), 1}
	}
	return chunks, vectors
}

func TestBuild_ZipsChunksAndVectors(t *testing.T) {
	chunks, vectors := testChunks(3)

	records, err := Build(chunks, vectors, map[string]any{"source": "data/a.txt"})
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, rec := range records {
		assert.Equal(t, vectors[i], rec.Values)
		assert.Equal(t, "chunk", rec.Metadata[KeyText])
		assert.Equal(t, i, rec.Metadata[KeyChunkIndex])
		assert.Equal(t, "data/a.txt", rec.Metadata["source"])

		_, err := uuid.Parse(rec.ID)
		assert.NoError(t, err, "id should be a UUID")

		var loc chunking.Location
		require.NoError(t, json.Unmarshal([]byte(rec.Metadata[KeyLocation].(string)), &loc))
		assert.Equal(t, chunks[i].Location, loc)
	}
}

func TestBuild_LengthMismatch(t *testing.T) {
	chunks, vectors := testChunks(3)

	_, err := Build(chunks, vectors[:2], nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestBuild_Empty(t *testing.T) {
	records, err := Build(nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBuild_FlattensNestedMetadata(t *testing.T) {
	chunks, vectors := testChunks(1)

	records, err := Build(chunks, vectors, map[string]any{
		"headings": []string{"Intro", "Usage"},
		"missing":  nil,
		"size":     int64(42),
	})
	require.NoError(t, err)

	md := records[0].Metadata
	assert.Equal(t, `["Intro","Usage"]`, md["headings"])
	assert.Equal(t, int64(42), md["size"])
	assert.NotContains(t, md, "missing")
}

func TestBuild_UniqueIDs(t *testing.T) {
	chunks, vectors := testChunks(10000)

	records, err := Build(chunks, vectors, nil)
	require.NoError(t, err)

	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		seen[rec.ID] = struct{}{}
	}
	assert.Len(t, seen, 10000, "id collision")
}
