// Package mock provides a deterministic embedding provider for tests.
package mock

import (
	"context"
	"hash/fnv"
	"sync"
)

// Provider is a test double for embedding.Provider.
// By default it returns a hash-derived vector per text.
type Provider struct {
	Dimension int

	// EmbedFunc replaces the default behavior when set.
	EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu    sync.Mutex
	calls [][]string
}

// NewProvider creates a provider returning vectors of the given dimension.
func NewProvider(dimension int) *Provider {
	return &Provider{Dimension: dimension}
}

// Embed records the call and returns deterministic vectors.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	p.calls = append(p.calls, append([]string(nil), texts...))
	p.mu.Unlock()

	if p.EmbedFunc != nil {
		return p.EmbedFunc(ctx, texts)
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = Vector(text, p.Dimension)
	}
	return out, nil
}

// Calls returns the texts of every Embed call so far.
func (p *Provider) Calls() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]string(nil), p.calls...)
}

// Vector derives a deterministic vector from text.
func Vector(text string, dimension int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, dimension)
	for i := range v {
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v[i] = float32(seed%2000)/1000 - 1
	}
	return v
}
