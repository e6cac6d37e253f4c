package storage

import (
	"testing"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Backend = (*QdrantStorage)(nil)
	_ Backend = (*MilvusStorage)(nil)
)

func TestQdrantDistance(t *testing.T) {
	cases := map[Metric]qdrant.Distance{
		MetricCosine:     qdrant.Distance_Cosine,
		MetricEuclidean:  qdrant.Distance_Euclid,
		MetricDotProduct: qdrant.Distance_Dot,
	}
	for metric, want := range cases {
		got, err := qdrantDistance(metric)
		require.NoError(t, err)
		assert.Equal(t, want, got, "metric %s", metric)
	}

	_, err := qdrantDistance("hamming")
	assert.ErrorIs(t, err, ErrUnsupportedMetric)
}

func TestMilvusMetric(t *testing.T) {
	cases := map[Metric]entity.MetricType{
		MetricCosine:     entity.COSINE,
		MetricEuclidean:  entity.L2,
		MetricDotProduct: entity.IP,
	}
	for metric, want := range cases {
		got, err := milvusMetric(metric)
		require.NoError(t, err)
		assert.Equal(t, want, got, "metric %s", metric)
	}

	_, err := milvusMetric("hamming")
	assert.ErrorIs(t, err, ErrUnsupportedMetric)
}
