package storage

import "context"

// Metric is the distance function an index ranks vectors by.
type Metric string

const (
	MetricCosine     Metric = "cosine"
	MetricEuclidean  Metric = "euclidean"
	MetricDotProduct Metric = "dotproduct"
)

// IndexDescriptor is the fixed schema of a vector index. The dimension cannot
// change for the lifetime of the index and must match the embedder's output.
type IndexDescriptor struct {
	Name      string
	Dimension int
	Metric    Metric
	Cloud     string // Placement hint, e.g. "aws"
	Region    string // Placement hint, e.g. "us-east-1"
}

// VectorRecord is one embedded chunk ready for upsert.
type VectorRecord struct {
	ID       string         // UUID
	Values   []float32      // Embedding, length == IndexDescriptor.Dimension
	Metadata map[string]any // Scalar values only: string, bool, int, int64, float64
}

// VectorIndexService is a remote service hosting named vector indexes.
type VectorIndexService interface {
	// ListIndexes returns the names of all existing indexes.
	ListIndexes(ctx context.Context) ([]string, error)
	// CreateIndex creates an index; it fails if the name already exists.
	CreateIndex(ctx context.Context, desc IndexDescriptor) error
	// Upsert writes records into the named index. No partial-batch success is assumed.
	Upsert(ctx context.Context, index string, records []VectorRecord) error
}

// Backend is a VectorIndexService with connection management.
type Backend interface {
	VectorIndexService
	Health(ctx context.Context) error
	CountVectors(ctx context.Context, index string) (uint64, error)
	Close() error
}
