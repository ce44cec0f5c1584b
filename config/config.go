package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendMongo    = "mongo"
	BackendWeaviate = "weaviate"
)

type Config struct {
	Port        string   `mapstructure:"port"`
	LogLevel    string   `mapstructure:"log_level"`
	LogFormat   string   `mapstructure:"log_format"`
	CorsOrigins []string `mapstructure:"cors_origins"`

	Provider          string            `mapstructure:"provider"`
	AIEndpoint        string            `mapstructure:"ai_endpoint"`
	Model             string            `mapstructure:"model"`
	EmbeddingModel    string            `mapstructure:"embedding_model"`
	OpenAIAPIKey      string            `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKey      string            `mapstructure:"GEMINI_API_KEY"`
	GeminiAPIKeys     []string          `mapstructure:"gemini_api_keys"`
	EmbeddingPrefixes EmbeddingPrefixes `mapstructure:"embedding_prefixes"`
	Retry             RetryConfig       `mapstructure:"retry"`

	Ingest      IngestConfig      `mapstructure:"ingest"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval"`
	Status      StatusConfig      `mapstructure:"status"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`
}

// EmbeddingPrefixes are prepended to texts by embedding models that expect
// an instruction prefix instead of a task type.
type EmbeddingPrefixes struct {
	Document string `mapstructure:"document"`
	Query    string `mapstructure:"query"`
}

type RetryConfig struct {
	MaxRetries  int           `mapstructure:"max_retries"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
	RateLimit   float64       `mapstructure:"rate_limit"` // requests per second
	Burst       int           `mapstructure:"burst"`
}

type IngestConfig struct {
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
	ChunkSize      int   `mapstructure:"chunk_size"`
	ChunkOverlap   int   `mapstructure:"chunk_overlap"`
	BatchSize      int   `mapstructure:"batch_size"`
}

type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

type StatusConfig struct {
	Backend         string        `mapstructure:"backend"`
	Retention       time.Duration `mapstructure:"retention"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MongoURI        string        `mapstructure:"mongo_uri"`
	MongoDatabase   string        `mapstructure:"mongo_database"`
	MongoCollection string        `mapstructure:"mongo_collection"`
}

type VectorStoreConfig struct {
	Backend    string              `mapstructure:"backend"`
	Collection string              `mapstructure:"collection"`
	Weaviate   WeaviateStoreConfig `mapstructure:"weaviate"`
}

type WeaviateStoreConfig struct {
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"WEAVIATE_APIKEY"`
	Class  string `mapstructure:"class"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("ai_endpoint", "")
	v.SetDefault("model", "")
	v.SetDefault("embedding_model", "")
	v.SetDefault("gemini_api_keys", []string{})
	v.SetDefault("embedding_prefixes.document", "")
	v.SetDefault("embedding_prefixes.query", "")

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_backoff", time.Second)
	v.SetDefault("retry.rate_limit", 10.0)
	v.SetDefault("retry.burst", 5)

	v.SetDefault("ingest.max_upload_bytes", int64(50*1024*1024))
	v.SetDefault("ingest.chunk_size", 500)
	v.SetDefault("ingest.chunk_overlap", 50)
	v.SetDefault("ingest.batch_size", 50)

	v.SetDefault("retrieval.top_k", 3)

	v.SetDefault("status.backend", BackendMemory)
	v.SetDefault("status.retention", time.Hour)
	v.SetDefault("status.sqlite_path", "data/status.db")
	v.SetDefault("status.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("status.mongo_database", "pdfchat")
	v.SetDefault("status.mongo_collection", "ingest_status")

	v.SetDefault("vector_store.backend", BackendMemory)
	v.SetDefault("vector_store.collection", "pdf_documents")
	v.SetDefault("vector_store.weaviate.host", "http://localhost:8080")
	v.SetDefault("vector_store.weaviate.class", "DocumentChunk")
}

// LoadConfig reads configPath when it exists and overlays environment
// variables. A missing file is not an error; every key has a default.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Bind environment variables
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	v.BindEnv("vector_store.weaviate.WEAVIATE_APIKEY", "WEAVIATE_APIKEY")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.applyProviderDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyProviderDefaults() {
	switch c.Provider {
	case ProviderOpenAI:
		if c.Model == "" {
			c.Model = "gpt-4o-mini"
		}
		if c.EmbeddingModel == "" {
			c.EmbeddingModel = "text-embedding-3-small"
		}
	default:
		if c.Model == "" {
			c.Model = "gemini-1.5-flash"
		}
		if c.EmbeddingModel == "" {
			c.EmbeddingModel = "text-embedding-004"
		}
	}
}

// Validate rejects settings the pipelines cannot run with.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Ingest.ChunkSize <= 0 || c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkSize <= c.Ingest.ChunkOverlap {
		return fmt.Errorf("chunk_size (%d) must be greater than chunk_overlap (%d)", c.Ingest.ChunkSize, c.Ingest.ChunkOverlap)
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("top_k must be positive")
	}
	switch c.Status.Backend {
	case BackendMemory, BackendSQLite, BackendMongo:
	default:
		return fmt.Errorf("unknown status backend %q", c.Status.Backend)
	}
	switch c.VectorStore.Backend {
	case BackendMemory, BackendWeaviate:
	default:
		return fmt.Errorf("unknown vector store backend %q", c.VectorStore.Backend)
	}
	return nil
}

// GeminiKeys lists every configured Gemini key, primary first.
func (c *Config) GeminiKeys() []string {
	keys := make([]string, 0, len(c.GeminiAPIKeys)+1)
	if c.GeminiAPIKey != "" {
		keys = append(keys, c.GeminiAPIKey)
	}
	for _, k := range c.GeminiAPIKeys {
		if k != "" && k != c.GeminiAPIKey {
			keys = append(keys, k)
		}
	}
	return keys
}
