// Package indexer provisions the target index and runs documents through
// chunking, embedding and batch upload.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/bull/vector-ingest/internal/chunking"
	"github.com/bull/vector-ingest/internal/embedding"
	"github.com/bull/vector-ingest/internal/record"
	"github.com/bull/vector-ingest/internal/source"
	"github.com/bull/vector-ingest/internal/storage"
)

// Summarizer produces a short description of a document and its keywords.
type Summarizer interface {
	Summarize(ctx context.Context, path, content string) (summary string, keywords []string, err error)
}

// RunResult contains statistics about one pipeline run.
type RunResult struct {
	Documents  int
	Skipped    []source.LoadError
	Chunks     int
	Records    int
	IndexState ProvisionState
	Upload     *UploadReport
	Duration   time.Duration
}

// Pipeline orchestrates a full ingestion run from loading to upload.
type Pipeline struct {
	loader      source.Loader
	splitter    *chunking.Splitter
	embedder    *embedding.Embedder
	provisioner *Provisioner
	uploader    *Uploader
	index       storage.IndexDescriptor
	batchSize   int

	summarizer  Summarizer
	concurrency int
	logger      *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithSummarizer adds a summary to each document's metadata before chunking.
func WithSummarizer(s Summarizer) PipelineOption {
	return func(p *Pipeline) {
		p.summarizer = s
	}
}

// WithConcurrency sets how many documents are embedded at once. Values below 1 mean 1.
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		p.concurrency = max(n, 1)
	}
}

// WithPipelineLogger sets a custom logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a new ingestion pipeline with the given components.
func NewPipeline(
	loader source.Loader,
	splitter *chunking.Splitter,
	embedder *embedding.Embedder,
	provisioner *Provisioner,
	uploader *Uploader,
	index storage.IndexDescriptor,
	batchSize int,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		loader:      loader,
		splitter:    splitter,
		embedder:    embedder,
		provisioner: provisioner,
		uploader:    uploader,
		index:       index,
		batchSize:   batchSize,
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run loads all documents, builds their records while the index is provisioned,
// then uploads the records in batches. Any error other than a skipped file
// aborts the run. The returned result is non-nil whenever loading succeeded.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()

	if p.index.Dimension != p.embedder.Dimension() {
		return nil, fmt.Errorf("%w: index %s has dimension %d, embedder produces %d",
			embedding.ErrDimensionMismatch, p.index.Name, p.index.Dimension, p.embedder.Dimension())
	}

	docs, skipped, err := p.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	result := &RunResult{Documents: len(docs), Skipped: skipped}
	p.logger.Info("Starting ingestion", "documents", len(docs), "skipped", len(skipped), "index", p.index.Name)

	var handle *IndexHandle
	perDoc := make([][]storage.VectorRecord, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := p.provisioner.EnsureIndex(gctx, p.index)
		if err != nil {
			return err
		}
		handle = h
		return nil
	})
	g.Go(func() error {
		return p.processAll(gctx, docs, perDoc)
	})
	err = g.Wait()
	result.IndexState = p.provisioner.State()
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}

	var records []storage.VectorRecord
	for _, recs := range perDoc {
		records = append(records, recs...)
	}
	// One record per chunk.
	result.Chunks = len(records)
	result.Records = len(records)

	report, err := p.uploader.Upload(ctx, handle, records, p.batchSize)
	result.Upload = report
	result.Duration = time.Since(start)
	if err != nil {
		return result, err
	}

	p.logger.Info("Ingestion complete",
		"documents", result.Documents,
		"chunks", result.Chunks,
		"uploaded", report.Uploaded,
		"batches", report.TotalBatches,
		"duration", result.Duration,
	)
	return result, nil
}

// processAll fills out[i] with the records of docs[i]. Documents are handed to
// a bounded worker pool; the first error cancels the rest.
func (p *Pipeline) processAll(ctx context.Context, docs []source.Document, out [][]storage.VectorRecord) error {
	if len(docs) == 0 {
		return nil
	}

	pool, err := ants.NewPool(p.concurrency)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for i := range docs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			records, err := p.processDocument(ctx, docs[i])
			if err != nil {
				fail(err)
				return
			}
			out[i] = records
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit %s: %w", docs[i].Path(), err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// processDocument handles chunk, embed and build for a single document.
func (p *Pipeline) processDocument(ctx context.Context, doc source.Document) ([]storage.VectorRecord, error) {
	path := doc.Path()

	chunks := p.splitter.Split(doc.Text)
	if len(chunks) == 0 {
		p.logger.Debug("Document is empty", "path", path)
		return nil, nil
	}

	metadata := doc.Metadata
	if p.summarizer != nil {
		summary, keywords, err := p.summarizer.Summarize(ctx, path, doc.Text)
		if err != nil {
			p.logger.Warn("Summary generation failed, continuing without", "path", path, "error", err)
		} else if summary != "" || len(keywords) > 0 {
			metadata = maps.Clone(doc.Metadata)
			if metadata == nil {
				metadata = make(map[string]any, 2)
			}
			if summary != "" {
				metadata[source.KeySummary] = summary
			}
			if len(keywords) > 0 {
				metadata[source.KeyKeywords] = keywords
			}
		}
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", path, err)
	}

	records, err := record.Build(chunks, vectors, metadata)
	if err != nil {
		return nil, fmt.Errorf("build records for %s: %w", path, err)
	}

	p.logger.Debug("Processed document", "path", path, "chunks", len(chunks))
	return records, nil
}
