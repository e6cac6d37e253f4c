package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cenkalti/backoff/v4"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

// Milvus collection field names.
const (
	milvusIDField       = "id"
	milvusVectorField   = "vector"
	milvusMetadataField = "metadata"

	milvusIDMaxLength = 64
	milvusNList       = 128
)

// MilvusConfig holds connection settings for a Milvus deployment.
type MilvusConfig struct {
	Address   string
	APIKey    string
	Dimension int // Expected vector length; 0 disables client-side validation
}

// MilvusStorage implements VectorIndexService on Milvus. Each index is a
// collection with a string primary key, one float vector and a JSON metadata field.
type MilvusStorage struct {
	client    *milvusclient.Client
	dimension int
}

// NewMilvusStorage connects to Milvus, retrying with exponential backoff until
// the server answers.
func NewMilvusStorage(ctx context.Context, cfg MilvusConfig) (*MilvusStorage, error) {
	var client *milvusclient.Client
	err := backoff.Retry(func() error {
		c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
			Address: cfg.Address,
			APIKey:  cfg.APIKey,
		})
		if err != nil {
			return err
		}
		client = c
		return nil
	}, backoff.WithContext(connectBackoff(), ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}

	return &MilvusStorage{client: client, dimension: cfg.Dimension}, nil
}

// Health lists collections as a liveness probe.
func (s *MilvusStorage) Health(ctx context.Context) error {
	if _, err := s.client.ListCollections(ctx, milvusclient.NewListCollectionOption()); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// ListIndexes returns all collection names.
func (s *MilvusStorage) ListIndexes(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx, milvusclient.NewListCollectionOption())
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

// CreateIndex creates the collection, builds an IVF_FLAT index with the
// descriptor metric and loads the collection.
func (s *MilvusStorage) CreateIndex(ctx context.Context, desc IndexDescriptor) error {
	metric, err := milvusMetric(desc.Metric)
	if err != nil {
		return err
	}

	schema := entity.NewSchema().
		WithName(desc.Name).
		WithDescription(fmt.Sprintf("%s/%s", desc.Cloud, desc.Region)).
		WithAutoID(false).
		WithField(entity.NewField().
			WithName(milvusIDField).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(milvusIDMaxLength).
			WithIsPrimaryKey(true)).
		WithField(entity.NewField().
			WithName(milvusVectorField).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(desc.Dimension))).
		WithField(entity.NewField().
			WithName(milvusMetadataField).
			WithDataType(entity.FieldTypeJSON))

	if err := s.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(desc.Name, schema)); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", desc.Name, err)
	}

	idx := index.NewIvfFlatIndex(metric, milvusNList)
	createIdxTask, err := s.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(desc.Name, milvusVectorField, idx))
	if err != nil {
		return fmt.Errorf("failed to create index on %s: %w", desc.Name, err)
	}
	if err := createIdxTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation on %s: %w", desc.Name, err)
	}

	loadTask, err := s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(desc.Name))
	if err != nil {
		return fmt.Errorf("failed to load collection %s: %w", desc.Name, err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading on %s: %w", desc.Name, err)
	}

	return nil
}

// Upsert writes one batch of records as columns.
func (s *MilvusStorage) Upsert(ctx context.Context, index string, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	dim := len(records[0].Values)
	ids := make([]string, len(records))
	vectors := make([][]float32, len(records))
	metadata := make([][]byte, len(records))
	for i, rec := range records {
		if len(rec.Values) != dim || (s.dimension > 0 && len(rec.Values) != s.dimension) {
			return fmt.Errorf("%w: record %s has %d dimensions", ErrDimensionMismatch, rec.ID, len(rec.Values))
		}
		raw, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("%w: record %s: %v", ErrInvalidMetadata, rec.ID, err)
		}
		ids[i] = rec.ID
		vectors[i] = rec.Values
		metadata[i] = raw
	}

	_, err := s.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(index,
		column.NewColumnVarChar(milvusIDField, ids),
		column.NewColumnFloatVector(milvusVectorField, dim, vectors),
		column.NewColumnJSONBytes(milvusMetadataField, metadata),
	))
	if err != nil {
		return fmt.Errorf("failed to upsert %d rows into %s: %w", len(records), index, err)
	}
	return nil
}

// CountVectors returns the collection row count.
func (s *MilvusStorage) CountVectors(ctx context.Context, index string) (uint64, error) {
	stats, err := s.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(index))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats for %s: %w", index, err)
	}
	if val, ok := stats["row_count"]; ok {
		return strconv.ParseUint(val, 10, 64)
	}
	return 0, nil
}

// Close closes the Milvus client connection.
func (s *MilvusStorage) Close() error {
	if s.client != nil {
		return s.client.Close(context.Background())
	}
	return nil
}

func milvusMetric(m Metric) (entity.MetricType, error) {
	switch m {
	case MetricCosine, "":
		return entity.COSINE, nil
	case MetricEuclidean:
		return entity.L2, nil
	case MetricDotProduct:
		return entity.IP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMetric, m)
}
