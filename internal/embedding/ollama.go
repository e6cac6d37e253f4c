package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaProvider generates embeddings with a local Ollama server through langchaingo.
// Ollama takes no credentials.
type OllamaProvider struct {
	embedder embeddings.Embedder
}

// NewOllamaProvider creates a provider for the given server and model.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(baseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}

	// Newlines are already collapsed by Embedder
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(false))
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w", err)
	}

	return &OllamaProvider{embedder: embedder}, nil
}

// Embed returns one vector per text.
func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.embedder.EmbedDocuments(ctx, texts)
}
