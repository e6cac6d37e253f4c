package app

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/vector-ingest/internal/config"
	"github.com/bull/vector-ingest/internal/embedding/mock"
	"github.com/bull/vector-ingest/internal/indexer"
	"github.com/bull/vector-ingest/internal/source"
	"github.com/bull/vector-ingest/internal/storage"
)

type memoryBackend struct {
	mu      sync.Mutex
	indexes map[string][]storage.VectorRecord
	closed  bool
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{indexes: map[string][]storage.VectorRecord{}}
}

func (b *memoryBackend) ListIndexes(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var names []string
	for name := range b.indexes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (b *memoryBackend) CreateIndex(ctx context.Context, desc storage.IndexDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.indexes[desc.Name] = nil
	return nil
}

func (b *memoryBackend) Upsert(ctx context.Context, index string, records []storage.VectorRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.indexes[index] = append(b.indexes[index], records...)
	return nil
}

func (b *memoryBackend) Health(ctx context.Context) error { return nil }

func (b *memoryBackend) CountVectors(ctx context.Context, index string) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.indexes[index])), nil
}

func (b *memoryBackend) Close() error {
	b.closed = true
	return nil
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		Embedding: config.Embedding{Provider: config.ProviderOpenAI, Concurrency: 2},
		Index: config.Index{
			Backend: config.BackendQdrant,
			Name:    "docs",
			Metric:  "cosine",
			Cloud:   "aws",
			Region:  "us-east-1",
		},
		Source: config.Source{
			Dir:        dir,
			Extensions: []string{".txt", ".md"},
		},
		Dimension:        4,
		BatchSize:        2,
		ChunkSize:        1000,
		ProvisionTimeout: time.Millisecond,
	}
}

func TestDescriptor(t *testing.T) {
	a := assemble(testConfig(""), newMemoryBackend(), mock.NewProvider(4), nil)
	assert.Equal(t, storage.IndexDescriptor{
		Name:      "docs",
		Dimension: 4,
		Metric:    storage.MetricCosine,
		Cloud:     "aws",
		Region:    "us-east-1",
	}, a.Descriptor())
}

func TestLoader_Selection(t *testing.T) {
	cfg := testConfig("data")
	a := assemble(cfg, newMemoryBackend(), mock.NewProvider(4), nil)

	loader, err := a.Loader("")
	require.NoError(t, err)
	assert.IsType(t, &source.FSLoader{}, loader)

	cfg.Source.GitHub = "owner/repo/docs"
	_, err = a.Loader("")
	assert.ErrorIs(t, err, source.ErrSourceUnavailable, "GitHub source without a client")

	loader, err = a.Loader("elsewhere")
	require.NoError(t, err)
	assert.IsType(t, &source.FSLoader{}, loader, "explicit directory wins")
}

func TestPipeline_IngestsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte(strings.Repeat("word ", 500)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("# Title\n\nShort body."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.bin"), []byte{0, 1, 2}, 0o644))

	backend := newMemoryBackend()
	a := assemble(testConfig(dir), backend, mock.NewProvider(4), nil)

	loader, err := a.Loader("")
	require.NoError(t, err)

	var batches []indexer.BatchStat
	pipeline, err := a.NewPipeline(loader, func(s indexer.BatchStat) {
		batches = append(batches, s)
	})
	require.NoError(t, err)

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Documents)
	assert.Equal(t, 4, result.Records, "2500 characters split into three chunks plus one")
	assert.Equal(t, indexer.StateReady, result.IndexState)
	assert.Len(t, batches, 2)

	status, err := a.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.Equal(t, uint64(4), status.Vectors)

	require.NoError(t, a.Close())
	assert.True(t, backend.closed)
}

func TestIngest_SubdirectoryOfSource(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "guides")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("top level"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "guide.md"), []byte("# Guide\n\nSteps."), 0o644))

	a := assemble(testConfig(root), newMemoryBackend(), mock.NewProvider(4), nil)

	result, err := a.Ingest(context.Background(), "guides", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Documents, "only the subdirectory is read")

	result, err = a.Ingest(context.Background(), sub, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Documents, "absolute paths under the source are accepted")
}

func TestIngest_RejectsDirOutsideSource(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(root, 0o755))
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("keep out"), 0o644))

	backend := newMemoryBackend()
	a := assemble(testConfig(root), backend, mock.NewProvider(4), nil)

	for _, dir := range []string{outside, "..", "../data-other", "guides/../../etc", "/etc"} {
		_, err := a.Ingest(context.Background(), dir, nil)
		assert.ErrorIs(t, err, ErrDirOutsideSource, "dir %q", dir)
	}
	assert.Empty(t, backend.indexes, "nothing is provisioned for a rejected directory")
}

func TestStatus_MissingIndex(t *testing.T) {
	a := assemble(testConfig(""), newMemoryBackend(), mock.NewProvider(4), nil)

	status, err := a.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Exists)
	assert.Zero(t, status.Vectors)
	assert.Equal(t, "qdrant", status.Backend)
}

func TestNewPipeline_InvalidChunking(t *testing.T) {
	cfg := testConfig("")
	cfg.ChunkOverlap = cfg.ChunkSize
	a := assemble(cfg, newMemoryBackend(), mock.NewProvider(4), nil)

	_, err := a.NewPipeline(&source.FSLoader{}, nil)
	assert.Error(t, err)
}
