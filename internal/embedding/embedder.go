package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"
)

// Provider turns texts into vectors. Implementations make one logical request
// per call and return vectors in input order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder normalizes chunk text, calls the provider and enforces the run's
// vector dimension. It never retries.
type Embedder struct {
	provider  Provider
	dimension int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithRateLimit caps provider calls at rps per second. Zero or less disables the cap.
func WithRateLimit(rps float64) Option {
	return func(e *Embedder) {
		if rps > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEmbedder creates an Embedder producing vectors of the given dimension.
func NewEmbedder(provider Provider, dimension int, opts ...Option) *Embedder {
	e := &Embedder{
		provider:  provider,
		dimension: dimension,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dimension returns the vector length every embedding must have.
func (e *Embedder) Dimension() int {
	return e.dimension
}

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Normalize collapses line breaks to spaces.
func Normalize(text string) string {
	return newlines.Replace(text)
}

// Embed returns one vector per text, in the same order. Any provider error,
// count mismatch or wrong-length vector fails the whole call.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = Normalize(t)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", ErrEmbeddingFailure, err)
		}
	}

	e.logger.Debug("Requesting embeddings", "count", len(texts))
	vectors, err := e.provider.Embed(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %w: got %d vectors for %d texts",
			ErrEmbeddingFailure, ErrCountMismatch, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != e.dimension {
			return nil, fmt.Errorf("%w: %w: vector %d has %d dimensions, expected %d",
				ErrEmbeddingFailure, ErrDimensionMismatch, i, len(v), e.dimension)
		}
	}

	return vectors, nil
}
