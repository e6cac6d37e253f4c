package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection settings for a Qdrant deployment.
type QdrantConfig struct {
	Host      string
	Port      int // gRPC port
	APIKey    string
	UseTLS    bool
	Dimension int // Expected vector length; 0 disables client-side validation
}

// QdrantStorage implements VectorIndexService on Qdrant. Each index is a collection.
type QdrantStorage struct {
	client    *qdrant.Client
	dimension int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(ctx context.Context, cfg QdrantConfig) (*QdrantStorage, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:    client,
		dimension: cfg.Dimension,
	}

	if err := storage.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}

	return storage, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(connectBackoff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// ListIndexes returns all collection names.
func (s *QdrantStorage) ListIndexes(ctx context.Context) ([]string, error) {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return collections, nil
}

// CreateIndex creates a collection with a single unnamed vector of the
// descriptor's size and distance.
func (s *QdrantStorage) CreateIndex(ctx context.Context, desc IndexDescriptor) error {
	distance, err := qdrantDistance(desc.Metric)
	if err != nil {
		return err
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: desc.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(desc.Dimension),
			Distance: distance,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", desc.Name, err)
	}
	return nil
}

// Upsert writes one batch of records and waits for Qdrant to apply it.
func (s *QdrantStorage) Upsert(ctx context.Context, index string, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		if s.dimension > 0 && len(rec.Values) != s.dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, expected %d",
				ErrDimensionMismatch, rec.ID, len(rec.Values), s.dimension)
		}

		payload, err := qdrant.TryValueMap(rec.Metadata)
		if err != nil {
			return fmt.Errorf("%w: record %s: %v", ErrInvalidMetadata, rec.ID, err)
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(rec.ID),
			Vectors: qdrant.NewVectors(rec.Values...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: index,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points into %s: %w", len(points), index, err)
	}
	return nil
}

// CountVectors returns the exact number of points in the collection.
func (s *QdrantStorage) CountVectors(ctx context.Context, index string) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: index,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points in %s: %w", index, err)
	}
	return count, nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func qdrantDistance(m Metric) (qdrant.Distance, error) {
	switch m {
	case MetricCosine, "":
		return qdrant.Distance_Cosine, nil
	case MetricEuclidean:
		return qdrant.Distance_Euclid, nil
	case MetricDotProduct:
		return qdrant.Distance_Dot, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedMetric, m)
}

// connectBackoff is the retry policy for establishing a backend connection.
func connectBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}
