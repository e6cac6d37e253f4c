// Package metadata generates LLM-written document summaries and keywords that
// are stored alongside every chunk of the document.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
)

// DefaultMaxTokens is the maximum content length before truncation (in tokens).
const DefaultMaxTokens = 16000

// DocumentMetadata contains LLM-generated metadata for a document.
type DocumentMetadata struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// Generator produces document summaries with an OpenAI chat model.
type Generator struct {
	client    *openai.Client
	model     openai.ChatModel
	maxTokens int
	logger    *slog.Logger
}

// NewGenerator creates a metadata generator with the given OpenAI client.
// Optional maxTokens parameter sets truncation limit (defaults to DefaultMaxTokens).
func NewGenerator(client *openai.Client, logger *slog.Logger, maxTokens ...int) *Generator {
	max := DefaultMaxTokens
	if len(maxTokens) > 0 && maxTokens[0] > 0 {
		max = maxTokens[0]
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:    client,
		model:     openai.ChatModelGPT4oMini,
		maxTokens: max,
		logger:    logger,
	}
}

// Summarize returns a one or two sentence summary of the document and the
// keywords it covers.
func (g *Generator) Summarize(ctx context.Context, path, content string) (string, []string, error) {
	meta, err := g.GenerateMetadata(ctx, path, content)
	if err != nil {
		return "", nil, err
	}
	return meta.Summary, meta.Keywords, nil
}

// GenerateMetadata analyzes document content and produces a summary and keyword list.
func (g *Generator) GenerateMetadata(ctx context.Context, path, content string) (*DocumentMetadata, error) {
	truncated := g.truncateContent(path, content)

	prompt := fmt.Sprintf(`Analyze this document and provide:
1. A concise summary (1-2 sentences) capturing the main topic and key points
2. A list of up to 10 keywords or named concepts it covers

Document path: %s

Document content:
%s

Respond in JSON format:
{"summary": "Brief description of what this document covers", "keywords": ["Keyword1", "Keyword2"]}`, path, truncated)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: g.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	var metadata DocumentMetadata
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &metadata, nil
}

// truncateContent truncates content to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (g *Generator) truncateContent(path, content string) string {
	maxChars := g.maxTokens * 4

	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}

	g.logger.Warn("Truncating content for summary",
		"path", path,
		"from", len(runes),
		"to", maxChars,
		"estimated_tokens", g.maxTokens,
	)
	return string(runes[:maxChars])
}
