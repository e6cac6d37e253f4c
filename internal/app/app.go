// Package app wires a Config into the components shared by the ingest CLI and
// the MCP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/go-github/v81/github"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/bull/vector-ingest/internal/chunking"
	"github.com/bull/vector-ingest/internal/config"
	"github.com/bull/vector-ingest/internal/embedding"
	"github.com/bull/vector-ingest/internal/indexer"
	"github.com/bull/vector-ingest/internal/metadata"
	"github.com/bull/vector-ingest/internal/source"
	"github.com/bull/vector-ingest/internal/storage"
)

// ErrDirOutsideSource is returned when Ingest is asked to read a directory that
// is not beneath the configured source directory.
var ErrDirOutsideSource = errors.New("directory is outside the configured source directory")

// App holds the long-lived clients of one process.
type App struct {
	cfg        *config.Config
	backend    storage.Backend
	embedder   *embedding.Embedder
	summarizer indexer.Summarizer
	github     *github.Client
	logger     *slog.Logger
}

// IndexStatus describes the configured index as seen by the backend.
type IndexStatus struct {
	Name    string
	Backend string
	Exists  bool
	Vectors uint64
}

// New connects to the index backend and creates the embedding provider.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider, openaiClient, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	backend, err := NewBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := assemble(cfg, backend, provider, logger)

	if cfg.Summarize {
		if openaiClient == nil {
			client := openai.NewClient(option.WithAPIKey(cfg.Embedding.APIKey))
			openaiClient = &client
		}
		a.summarizer = metadata.NewGenerator(openaiClient, logger)
	}

	if cfg.Source.GitHub != "" {
		a.github, err = source.NewGitHubClient(cfg.Source.GitHubToken)
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("create GitHub client: %w", err)
		}
	}

	return a, nil
}

func assemble(cfg *config.Config, backend storage.Backend, provider embedding.Provider, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		cfg:     cfg,
		backend: backend,
		embedder: embedding.NewEmbedder(provider, cfg.Dimension,
			embedding.WithRateLimit(cfg.Embedding.RPS),
			embedding.WithLogger(logger),
		),
		logger: logger,
	}
}

// NewProvider creates the configured embedding provider. The OpenAI client is
// returned too when the provider uses one, so it can be shared.
func NewProvider(cfg *config.Config) (embedding.Provider, *openai.Client, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderOllama:
		p, err := embedding.NewOllamaProvider(cfg.Embedding.BaseURL, cfg.Embedding.Model)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	default:
		p, err := embedding.NewOpenAIProvider(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Dimension)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Client(), nil
	}
}

// NewBackend connects to the configured vector index service.
func NewBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Index.Backend {
	case config.BackendMilvus:
		s, err := storage.NewMilvusStorage(ctx, storage.MilvusConfig{
			Address:   cfg.Index.Addr(),
			APIKey:    cfg.Index.APIKey,
			Dimension: cfg.Dimension,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := storage.NewQdrantStorage(ctx, storage.QdrantConfig{
			Host:      cfg.Index.Host,
			Port:      cfg.Index.Port,
			APIKey:    cfg.Index.APIKey,
			UseTLS:    cfg.Index.TLS,
			Dimension: cfg.Dimension,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Backend returns the index backend.
func (a *App) Backend() storage.Backend {
	return a.backend
}

// Descriptor returns the schema of the configured index.
func (a *App) Descriptor() storage.IndexDescriptor {
	return storage.IndexDescriptor{
		Name:      a.cfg.Index.Name,
		Dimension: a.cfg.Dimension,
		Metric:    storage.Metric(a.cfg.Index.Metric),
		Cloud:     a.cfg.Index.Cloud,
		Region:    a.cfg.Index.Region,
	}
}

// Loader returns the document source. A non-empty dir overrides the configured
// source and always reads the local filesystem.
func (a *App) Loader(dir string) (source.Loader, error) {
	src := a.cfg.Source
	if dir != "" {
		return source.NewFSLoader(dir, src.Recursive, src.Extensions, a.logger), nil
	}
	if src.GitHub != "" {
		if a.github == nil {
			return nil, fmt.Errorf("%w: GitHub client not initialized", source.ErrSourceUnavailable)
		}
		owner, repo, basePath, err := source.ParseGitHubSource(src.GitHub)
		if err != nil {
			return nil, err
		}
		return source.NewGitHubLoader(a.github, owner, repo, basePath, src.Extensions, a.logger), nil
	}
	return source.NewFSLoader(src.Dir, src.Recursive, src.Extensions, a.logger), nil
}

// NewPipeline builds a pipeline over loader. onBatch, if non-nil, receives
// upload progress.
func (a *App) NewPipeline(loader source.Loader, onBatch func(indexer.BatchStat)) (*indexer.Pipeline, error) {
	splitter, err := chunking.NewSplitter(a.cfg.ChunkSize, a.cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	uploader := indexer.NewUploader(a.logger)
	uploader.OnBatch = onBatch

	opts := []indexer.PipelineOption{
		indexer.WithConcurrency(a.cfg.Embedding.Concurrency),
		indexer.WithPipelineLogger(a.logger),
	}
	if a.summarizer != nil {
		opts = append(opts, indexer.WithSummarizer(a.summarizer))
	}

	return indexer.NewPipeline(
		loader,
		splitter,
		a.embedder,
		indexer.NewProvisioner(a.backend, a.cfg.ProvisionTimeout, a.logger),
		uploader,
		a.Descriptor(),
		a.cfg.BatchSize,
		opts...,
	), nil
}

// Ingest runs one full pipeline over the source selected by dir (see Loader).
// Unlike Loader, a non-empty dir must lie under the configured source
// directory; relative paths are taken relative to it.
func (a *App) Ingest(ctx context.Context, dir string, onBatch func(indexer.BatchStat)) (*indexer.RunResult, error) {
	if dir != "" {
		scoped, err := a.scopedDir(dir)
		if err != nil {
			return nil, err
		}
		dir = scoped
	}
	loader, err := a.Loader(dir)
	if err != nil {
		return nil, err
	}
	pipeline, err := a.NewPipeline(loader, onBatch)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(ctx)
}

// Status reports whether the configured index exists and how many vectors it holds.
func (a *App) Status(ctx context.Context) (*IndexStatus, error) {
	status := &IndexStatus{Name: a.cfg.Index.Name, Backend: a.cfg.Index.Backend}

	names, err := a.backend.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	if !slices.Contains(names, status.Name) {
		return status, nil
	}
	status.Exists = true

	status.Vectors, err = a.backend.CountVectors(ctx, status.Name)
	if err != nil {
		return nil, fmt.Errorf("count vectors: %w", err)
	}
	return status, nil
}

// Close releases the backend connection.
func (a *App) Close() error {
	return a.backend.Close()
}

// scopedDir resolves dir against the source directory and rejects anything
// that escapes it. The check is lexical; symlinks are not resolved.
func (a *App) scopedDir(dir string) (string, error) {
	root, err := filepath.Abs(a.cfg.Source.Dir)
	if err != nil {
		return "", fmt.Errorf("resolve source directory: %w", err)
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	dir = filepath.Clean(dir)

	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrDirOutsideSource, dir)
	}
	return dir, nil
}
