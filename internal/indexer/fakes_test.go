package indexer

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/bull/vector-ingest/internal/source"
	"github.com/bull/vector-ingest/internal/storage"
)

var errBoom = errors.New("boom")

// fakeService is an in-memory VectorIndexService.
type fakeService struct {
	mu        sync.Mutex
	names     []string
	created   []storage.IndexDescriptor
	upserts   [][]storage.VectorRecord
	listErr   error
	createErr error
	failAt    int // 1-based upsert call that fails; 0 never fails
}

func (f *fakeService) ListIndexes(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.names), nil
}

func (f *fakeService) CreateIndex(ctx context.Context, desc storage.IndexDescriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, desc)
	f.names = append(f.names, desc.Name)
	return nil
}

func (f *fakeService) Upsert(ctx context.Context, index string, records []storage.VectorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt > 0 && len(f.upserts)+1 == f.failAt {
		f.upserts = append(f.upserts, nil)
		return errBoom
	}
	f.upserts = append(f.upserts, slices.Clone(records))
	return nil
}

func (f *fakeService) createCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeService) upsertSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sizes := make([]int, len(f.upserts))
	for i, batch := range f.upserts {
		sizes[i] = len(batch)
	}
	return sizes
}

func (f *fakeService) uploaded() []storage.VectorRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []storage.VectorRecord
	for _, batch := range f.upserts {
		all = append(all, batch...)
	}
	return all
}

// staticLoader returns a fixed document set.
type staticLoader struct {
	docs    []source.Document
	skipped []source.LoadError
	err     error
}

func (l *staticLoader) Load(ctx context.Context) ([]source.Document, []source.LoadError, error) {
	return l.docs, l.skipped, l.err
}

func noSleep(ctx context.Context, d time.Duration) error {
	return nil
}
