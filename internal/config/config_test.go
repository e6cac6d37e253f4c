package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VECTOR_INDEX_API_KEY", "index-key")
	t.Setenv("VECTOR_INDEX_NAME", "docs")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(t, DefaultOpenAIModel, cfg.Embedding.Model)
	assert.Equal(t, 1, cfg.Embedding.Concurrency)
	assert.Equal(t, BackendQdrant, cfg.Index.Backend)
	assert.Equal(t, DefaultQdrantPort, cfg.Index.Port)
	assert.Equal(t, "cosine", cfg.Index.Metric)
	assert.Equal(t, DefaultDataDir, cfg.Source.Dir)
	assert.Equal(t, []string{".txt", ".md"}, cfg.Source.Extensions)
	assert.Equal(t, 1536, cfg.Dimension)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 80*time.Second, cfg.ProvisionTimeout)
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("VECTOR_INDEX_API_KEY", "")
	t.Setenv("VECTOR_INDEX_NAME", "")

	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY is required")
	assert.Contains(t, err.Error(), "VECTOR_INDEX_API_KEY is required")
	assert.Contains(t, err.Error(), "VECTOR_INDEX_NAME is required")
}

func TestLoad_OllamaNeedsNoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("VECTOR_INDEX_API_KEY", "index-key")
	t.Setenv("VECTOR_INDEX_NAME", "docs")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultOllamaModel, cfg.Embedding.Model)
	assert.Equal(t, DefaultOllamaBaseURL, cfg.Embedding.BaseURL)
}

func TestLoad_OllamaSummariesNeedKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("SUMMARIZE", "true")
	t.Setenv("VECTOR_INDEX_API_KEY", "index-key")
	t.Setenv("VECTOR_INDEX_NAME", "docs")

	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "SUMMARIZE requires OPENAI_API_KEY")
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("VECTOR_INDEX_BACKEND", "milvus")
	t.Setenv("VECTOR_DIMENSION", "768")
	t.Setenv("BATCH_SIZE", "2")
	t.Setenv("PROVISION_TIMEOUT", "5s")
	t.Setenv("DATA_RECURSIVE", "true")
	t.Setenv("DATA_EXTENSIONS", "txt, .MD,rst")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMilvusPort, cfg.Index.Port)
	assert.Equal(t, 768, cfg.Dimension)
	assert.Equal(t, 2, cfg.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.ProvisionTimeout)
	assert.True(t, cfg.Source.Recursive)
	assert.Equal(t, []string{".txt", ".md", ".rst"}, cfg.Source.Extensions)
}

func TestLoad_BadNumber(t *testing.T) {
	setRequired(t)
	t.Setenv("BATCH_SIZE", "many")

	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_FileThenEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("BATCH_SIZE", "7")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
index:
  name: from-file
  metric: dotproduct
batch_size: 50
chunk_size: 500
chunk_overlap: 50
provision_timeout: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	// env wins over file
	assert.Equal(t, "docs", cfg.Index.Name)
	assert.Equal(t, 7, cfg.BatchSize)
	assert.Equal(t, "dotproduct", cfg.Index.Metric)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 10*time.Second, cfg.ProvisionTimeout)
}

func TestLoad_ExplicitZeroTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("PROVISION_TIMEOUT", "0s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Zero(t, cfg.ProvisionTimeout, "explicit zero must not fall back to the default")
}

func TestLoad_ExplicitZeroTimeoutInFile(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provision_timeout: 0s\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.ProvisionTimeout)
}

func TestLoad_ExplicitZeroConcurrencyRejected(t *testing.T) {
	setRequired(t)
	t.Setenv("EMBED_CONCURRENCY", "0")

	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "EMBED_CONCURRENCY must be at least 1")
}

func TestValidate_Ranges(t *testing.T) {
	cfg := &Config{
		Embedding:    Embedding{Provider: ProviderOpenAI, APIKey: "k", Concurrency: 1},
		Index:        Index{Backend: BackendQdrant, APIKey: "k", Name: "n", Metric: "manhattan"},
		Dimension:    0,
		BatchSize:    -1,
		ChunkSize:    100,
		ChunkOverlap: 100,
	}

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), `unknown metric "manhattan"`)
	assert.Contains(t, err.Error(), "VECTOR_DIMENSION must be positive")
	assert.Contains(t, err.Error(), "BATCH_SIZE must be positive")
	assert.Contains(t, err.Error(), "CHUNK_OVERLAP")
}
