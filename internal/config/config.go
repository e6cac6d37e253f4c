// Package config loads the immutable run configuration for the ingestion pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when startup configuration is missing or invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// Supported embedding providers and index backends.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	BackendQdrant = "qdrant"
	BackendMilvus = "milvus"
)

// Defaults applied when a value is neither in the config file nor the environment.
const (
	DefaultOpenAIModel      = "text-embedding-3-small"
	DefaultOllamaModel      = "nomic-embed-text"
	DefaultOllamaBaseURL    = "http://localhost:11434"
	DefaultIndexHost        = "localhost"
	DefaultQdrantPort       = 6334
	DefaultMilvusPort       = 19530
	DefaultMetric           = "cosine"
	DefaultCloud            = "aws"
	DefaultRegion           = "us-east-1"
	DefaultDataDir          = "data"
	DefaultDimension        = 1536
	DefaultBatchSize        = 100
	DefaultChunkSize        = 1000
	DefaultProvisionTimeout = 80 * time.Second
)

// DefaultExtensions are the text file extensions ingested when none are configured.
var DefaultExtensions = []string{".txt", ".md"}

// Embedding configures the embedding provider.
type Embedding struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	RPS         float64 `yaml:"rps"`
	Concurrency int     `yaml:"concurrency"`
}

// Index configures the target vector index and the service hosting it.
type Index struct {
	Backend string `yaml:"backend"`
	APIKey  string `yaml:"api_key"`
	Name    string `yaml:"name"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	TLS     bool   `yaml:"tls"`
	Metric  string `yaml:"metric"`
	Cloud   string `yaml:"cloud"`
	Region  string `yaml:"region"`
}

// Source configures where documents are read from.
type Source struct {
	Dir         string   `yaml:"dir"`
	Recursive   bool     `yaml:"recursive"`
	Extensions  []string `yaml:"extensions"`
	GitHub      string   `yaml:"github"`
	GitHubToken string   `yaml:"github_token"`
}

// Config is the full run configuration. It is built once at startup and
// passed by pointer to each component; nothing mutates it afterwards.
type Config struct {
	Embedding Embedding `yaml:"embedding"`
	Index     Index     `yaml:"index"`
	Source    Source    `yaml:"source"`

	Dimension        int           `yaml:"dimension"`
	BatchSize        int           `yaml:"batch_size"`
	ChunkSize        int           `yaml:"chunk_size"`
	ChunkOverlap     int           `yaml:"chunk_overlap"`
	ProvisionTimeout time.Duration `yaml:"provision_timeout"`
	Summarize        bool          `yaml:"summarize"`
}

// Load builds a Config from an optional YAML file, the process environment and
// defaults, in that order of increasing precedence for file and env. The
// result is validated before it is returned.
func Load(path string) (*Config, error) {
	// Zero is a meaningful explicit value for these, so their defaults are
	// set before the file and environment are merged.
	cfg := &Config{
		Embedding:        Embedding{Concurrency: 1},
		ProvisionTimeout: DefaultProvisionTimeout,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read config file: %v", ErrInvalidConfig, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config file: %v", ErrInvalidConfig, err)
		}
	}

	if err := mergeWithEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func mergeWithEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}

	str("EMBEDDING_PROVIDER", &cfg.Embedding.Provider)
	str("OPENAI_API_KEY", &cfg.Embedding.APIKey)
	str("EMBEDDING_MODEL", &cfg.Embedding.Model)
	str("OLLAMA_BASE_URL", &cfg.Embedding.BaseURL)
	num("EMBED_CONCURRENCY", &cfg.Embedding.Concurrency)
	if v, ok := lookup("EMBEDDING_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("EMBEDDING_RPS: %q is not a number", v))
		} else {
			cfg.Embedding.RPS = f
		}
	}

	str("VECTOR_INDEX_BACKEND", &cfg.Index.Backend)
	str("VECTOR_INDEX_API_KEY", &cfg.Index.APIKey)
	str("VECTOR_INDEX_NAME", &cfg.Index.Name)
	str("VECTOR_INDEX_HOST", &cfg.Index.Host)
	num("VECTOR_INDEX_PORT", &cfg.Index.Port)
	flag("VECTOR_INDEX_TLS", &cfg.Index.TLS)
	str("VECTOR_INDEX_METRIC", &cfg.Index.Metric)
	str("VECTOR_INDEX_CLOUD", &cfg.Index.Cloud)
	str("VECTOR_INDEX_REGION", &cfg.Index.Region)

	str("DATA_DIR", &cfg.Source.Dir)
	flag("DATA_RECURSIVE", &cfg.Source.Recursive)
	if v, ok := lookup("DATA_EXTENSIONS"); ok && v != "" {
		cfg.Source.Extensions = splitList(v)
	}
	str("GITHUB_SOURCE", &cfg.Source.GitHub)
	str("GITHUB_TOKEN", &cfg.Source.GitHubToken)

	num("VECTOR_DIMENSION", &cfg.Dimension)
	num("BATCH_SIZE", &cfg.BatchSize)
	num("CHUNK_SIZE", &cfg.ChunkSize)
	num("CHUNK_OVERLAP", &cfg.ChunkOverlap)
	flag("SUMMARIZE", &cfg.Summarize)
	if v, ok := lookup("PROVISION_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PROVISION_TIMEOUT: %q is not a duration", v))
		} else {
			cfg.ProvisionTimeout = d
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderOpenAI
	}
	if cfg.Embedding.Model == "" {
		if cfg.Embedding.Provider == ProviderOllama {
			cfg.Embedding.Model = DefaultOllamaModel
		} else {
			cfg.Embedding.Model = DefaultOpenAIModel
		}
	}
	if cfg.Embedding.BaseURL == "" && cfg.Embedding.Provider == ProviderOllama {
		cfg.Embedding.BaseURL = DefaultOllamaBaseURL
	}

	if cfg.Index.Backend == "" {
		cfg.Index.Backend = BackendQdrant
	}
	if cfg.Index.Host == "" {
		cfg.Index.Host = DefaultIndexHost
	}
	if cfg.Index.Port == 0 {
		if cfg.Index.Backend == BackendMilvus {
			cfg.Index.Port = DefaultMilvusPort
		} else {
			cfg.Index.Port = DefaultQdrantPort
		}
	}
	if cfg.Index.Metric == "" {
		cfg.Index.Metric = DefaultMetric
	}
	if cfg.Index.Cloud == "" {
		cfg.Index.Cloud = DefaultCloud
	}
	if cfg.Index.Region == "" {
		cfg.Index.Region = DefaultRegion
	}

	if cfg.Source.Dir == "" {
		cfg.Source.Dir = DefaultDataDir
	}
	if len(cfg.Source.Extensions) == 0 {
		cfg.Source.Extensions = append([]string(nil), DefaultExtensions...)
	}

	if cfg.Dimension == 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
}

// Validate reports every missing or out-of-range value at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if c.Embedding.APIKey == "" {
			problems = append(problems, "OPENAI_API_KEY is required")
		}
	case ProviderOllama:
		if c.Summarize && c.Embedding.APIKey == "" {
			problems = append(problems, "SUMMARIZE requires OPENAI_API_KEY")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown embedding provider %q", c.Embedding.Provider))
	}
	if c.Embedding.RPS < 0 {
		problems = append(problems, "EMBEDDING_RPS must not be negative")
	}
	if c.Embedding.Concurrency < 1 {
		problems = append(problems, "EMBED_CONCURRENCY must be at least 1")
	}

	switch c.Index.Backend {
	case BackendQdrant, BackendMilvus:
	default:
		problems = append(problems, fmt.Sprintf("unknown index backend %q", c.Index.Backend))
	}
	if c.Index.APIKey == "" {
		problems = append(problems, "VECTOR_INDEX_API_KEY is required")
	}
	if c.Index.Name == "" {
		problems = append(problems, "VECTOR_INDEX_NAME is required")
	}
	switch c.Index.Metric {
	case "cosine", "euclidean", "dotproduct":
	default:
		problems = append(problems, fmt.Sprintf("unknown metric %q", c.Index.Metric))
	}

	if c.Dimension <= 0 {
		problems = append(problems, "VECTOR_DIMENSION must be positive")
	}
	if c.BatchSize <= 0 {
		problems = append(problems, "BATCH_SIZE must be positive")
	}
	if c.ChunkSize <= 0 {
		problems = append(problems, "CHUNK_SIZE must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		problems = append(problems, "CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}
	if c.ProvisionTimeout < 0 {
		problems = append(problems, "PROVISION_TIMEOUT must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Addr returns host:port of the index service.
func (i Index) Addr() string {
	return fmt.Sprintf("%s:%d", i.Host, i.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		out = append(out, strings.ToLower(part))
	}
	return out
}
