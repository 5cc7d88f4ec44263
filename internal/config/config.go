// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (NEWSRAG_* plus the provider API keys)
//  2. Config file (./newsrag.yaml or ~/.newsrag/config.yaml)
//  3. Default values
//
// A .env file in the working directory is loaded into the process
// environment before viper runs, so provider keys can live there during
// development.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingJinaKey indicates JINA_API_KEY is not set.
	ErrMissingJinaKey = errors.New("missing Jina API key")

	// ErrMissingGeminiKey indicates GEMINI_API_KEY is not set.
	ErrMissingGeminiKey = errors.New("missing Gemini API key")

	// ErrMissingPineconeKey indicates PINECONE_API_KEY is not set.
	ErrMissingPineconeKey = errors.New("missing Pinecone API key")

	// ErrInvalidBackend indicates the vector backend is not supported.
	ErrInvalidBackend = errors.New("invalid vector backend")

	// ErrInvalidChunking indicates the chunk size or overlap is out of range.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidTopK indicates the retrieval topK is out of range.
	ErrInvalidTopK = errors.New("invalid topK")

	// ErrInvalidInterval indicates the ingestion pacing interval is out of range.
	ErrInvalidInterval = errors.New("invalid ingest interval")

	// ErrInvalidServerAddr indicates the HTTP listen address is invalid.
	ErrInvalidServerAddr = errors.New("invalid server address")

	// ErrInvalidRedisAddr indicates the Redis address is invalid.
	ErrInvalidRedisAddr = errors.New("invalid Redis address")
)

// Vector backend identifiers used in Config.Backend.
const (
	BackendChroma   = "chroma"
	BackendPinecone = "pinecone"
	BackendMemory   = "memory"
)

// Config stores application configuration. API keys are read from the
// environment only and are never written to disk or logs.
type Config struct {
	// HTTP server
	ServerAddr string `mapstructure:"server_addr"`

	// Vector backend selection: "chroma" (default), "pinecone", "memory"
	Backend string `mapstructure:"backend"`

	// Chroma configuration (only used when backend is "chroma")
	ChromaURL        string `mapstructure:"chroma_url"`
	ChromaCollection string `mapstructure:"chroma_collection"`

	// Pinecone configuration (only used when backend is "pinecone")
	PineconeIndex  string `mapstructure:"pinecone_index"`
	PineconeCloud  string `mapstructure:"pinecone_cloud"`
	PineconeRegion string `mapstructure:"pinecone_region"`

	// Redis session store
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// Generation
	GeminiModel string `mapstructure:"gemini_model"`

	// Chunking
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`

	// Retrieval
	TopK            int `mapstructure:"top_k"`
	ContextMessages int `mapstructure:"context_messages"`

	// Ingestion pacing between embedding calls, in milliseconds.
	IngestIntervalMS int      `mapstructure:"ingest_interval_ms"`
	Feeds            []string `mapstructure:"feeds"`
	MaxArticles      int      `mapstructure:"max_articles"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Development convenience only; a missing .env is not an error.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Debug("skipping .env file", "error", err)
	}

	v := viper.New()
	v.SetConfigName("newsrag")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".newsrag"))
	}

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"config_name", "newsrag.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", ":8080")

	v.SetDefault("backend", BackendChroma)
	v.SetDefault("chroma_url", "http://localhost:8000")
	v.SetDefault("chroma_collection", "news_articles")

	v.SetDefault("pinecone_index", "news-articles")
	v.SetDefault("pinecone_cloud", "aws")
	v.SetDefault("pinecone_region", "us-east-1")

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)

	v.SetDefault("gemini_model", "gemini-2.5-pro")

	v.SetDefault("chunk_size", 500)
	v.SetDefault("chunk_overlap", 100)

	v.SetDefault("top_k", 12)
	v.SetDefault("context_messages", 3)

	v.SetDefault("ingest_interval_ms", 500)
	v.SetDefault("max_articles", 50)
}

// bindEnvVariables maps NEWSRAG_* environment variables onto config keys.
// Provider API keys (JINA_API_KEY, GEMINI_API_KEY, PINECONE_API_KEY) are
// read directly from the environment by the accessors below, not via viper,
// so they can never end up serialized with the rest of the config.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded strings cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("server_addr", "NEWSRAG_SERVER_ADDR")
	mustBind("backend", "NEWSRAG_BACKEND")
	mustBind("chroma_url", "NEWSRAG_CHROMA_URL")
	mustBind("chroma_collection", "NEWSRAG_CHROMA_COLLECTION")
	mustBind("pinecone_index", "NEWSRAG_PINECONE_INDEX")
	mustBind("pinecone_cloud", "NEWSRAG_PINECONE_CLOUD")
	mustBind("pinecone_region", "NEWSRAG_PINECONE_REGION")
	mustBind("redis_addr", "NEWSRAG_REDIS_ADDR")
	mustBind("redis_password", "NEWSRAG_REDIS_PASSWORD")
	mustBind("redis_db", "NEWSRAG_REDIS_DB")
	mustBind("gemini_model", "NEWSRAG_GEMINI_MODEL")
	mustBind("top_k", "NEWSRAG_TOP_K")
	mustBind("context_messages", "NEWSRAG_CONTEXT_MESSAGES")
	mustBind("ingest_interval_ms", "NEWSRAG_INGEST_INTERVAL_MS")
	mustBind("max_articles", "NEWSRAG_MAX_ARTICLES")
}

// JinaAPIKey returns the Jina embedding API key from the environment.
func (c *Config) JinaAPIKey() string { return os.Getenv("JINA_API_KEY") }

// GeminiAPIKey returns the Gemini generation API key from the environment.
func (c *Config) GeminiAPIKey() string { return os.Getenv("GEMINI_API_KEY") }

// PineconeAPIKey returns the Pinecone API key from the environment.
func (c *Config) PineconeAPIKey() string { return os.Getenv("PINECONE_API_KEY") }
