// Package record assembles vector records from chunks and their embeddings.
package record

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bull/vector-ingest/internal/chunking"
	"github.com/bull/vector-ingest/internal/storage"
)

// ErrLengthMismatch means chunks and vectors do not pair up. It indicates a defect upstream.
var ErrLengthMismatch = errors.New("chunk and vector count mismatch")

// Metadata keys written on every record.
const (
	KeyText       = "text"
	KeyLocation   = "loc"
	KeyChunkIndex = "chunk_index"
)

// Build zips chunks[i] with vectors[i]. base is copied into every record's
// metadata; non-scalar base values are stored as JSON strings.
func Build(chunks []chunking.Chunk, vectors [][]float32, base map[string]any) ([]storage.VectorRecord, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks, %d vectors", ErrLengthMismatch, len(chunks), len(vectors))
	}

	shared, err := flatten(base)
	if err != nil {
		return nil, err
	}

	records := make([]storage.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		loc, err := json.Marshal(chunk.Location)
		if err != nil {
			return nil, fmt.Errorf("encode location of chunk %d: %w", i, err)
		}

		metadata := make(map[string]any, len(shared)+3)
		for k, v := range shared {
			metadata[k] = v
		}
		metadata[KeyText] = chunk.Text
		metadata[KeyLocation] = string(loc)
		metadata[KeyChunkIndex] = chunk.Index

		// Random UUIDv4, never content-derived: a re-run inserts new records
		records[i] = storage.VectorRecord{
			ID:       uuid.NewString(),
			Values:   vectors[i],
			Metadata: metadata,
		}
	}

	return records, nil
}

// flatten keeps scalar values and serializes everything else to a JSON string.
func flatten(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch v.(type) {
		case nil:
			continue
		case string, bool, int, int32, int64, float32, float64:
			out[k] = v
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode metadata %q: %w", k, err)
			}
			out[k] = string(raw)
		}
	}
	return out, nil
}
