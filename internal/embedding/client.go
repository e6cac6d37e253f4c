package embedding

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider generates embeddings with the OpenAI embeddings API.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	dimension int
}

// NewOpenAIProvider creates a provider for the given model. The dimension is
// sent with the request for models that support shortened vectors.
// Client retries are disabled; a failed request fails the run.
func NewOpenAIProvider(apiKey, model string, dimension int, opts ...option.RequestOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key not set", ErrUnauthorized)
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	client := openai.NewClient(opts...)

	return &OpenAIProvider{
		client:    &client,
		model:     model,
		dimension: dimension,
	}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., metadata generation).
func (p *OpenAIProvider) Client() *openai.Client {
	return p.client
}

// Embed sends all texts in a single request.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(p.model),
	}
	// Only the text-embedding-3 family accepts a dimensions parameter
	if strings.HasPrefix(p.model, "text-embedding-3") && p.dimension > 0 {
		params.Dimensions = openai.Int(int64(p.dimension))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			if status := classifyStatus(apiErr.StatusCode); status != nil {
				return nil, fmt.Errorf("%w: %v", status, err)
			}
		}
		return nil, err
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	// Convert float64 to float32 for storage compatibility
	embeddings := make([][]float32, len(data))
	for i, d := range data {
		embeddings[i] = toFloat32(d.Embedding)
	}
	return embeddings, nil
}

// toFloat32 converts []float64 to []float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
