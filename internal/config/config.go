// Package config provides configuration management for Reverie.
// It loads settings from environment variables with the REVERIE_ prefix
// and provides sensible defaults for all configuration options.
//
// Product-tuning heuristics (retrieval caps, readiness thresholds, TTLs)
// are deliberately configuration fields rather than compiled-in constants.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration settings for the Reverie application.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Provider  ProviderConfig
	Ingest    IngestConfig
	Retrieval RetrievalConfig
	Chat      ChatConfig
	Session   SessionConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 6464)
	Host string // Server host (default: 127.0.0.1)

	// RateLimitRPS is the per-client request rate limit (default: 10).
	RateLimitRPS float64
	// RateLimitBurst is the per-client burst allowance (default: 20).
	RateLimitBurst int
}

// StorageConfig contains database and vector index configuration.
type StorageConfig struct {
	// VectorBackend selects the vector index implementation: postgres, memory
	// (default: memory).
	VectorBackend string

	// PostgresDSN is the connection string for the pgvector backend.
	PostgresDSN string

	// SQLitePath is the path to the turn-store database file
	// (default: ./data/reverie.db).
	SQLitePath string

	// WatchDir, when non-empty, enables the transcript drop-directory
	// watcher: files created there are ingested automatically.
	WatchDir string
}

// ProviderConfig contains embedding and generation provider configuration.
type ProviderConfig struct {
	Provider        string // Provider: openai, ollama (default: ollama)
	OpenAIAPIKey    string // OpenAI API key
	OpenAIModel     string // OpenAI chat model (default: gpt-4o-mini)
	OpenAIEmbedding string // OpenAI embedding model (default: text-embedding-3-small)
	OllamaURL       string // Ollama API URL (default: http://localhost:11434)
	OllamaModel     string // Ollama chat model (default: qwen2.5:7b)
	OllamaEmbedding string // Ollama embedding model (default: nomic-embed-text)

	// EmbeddingDims is the vector dimensionality the index is created with
	// (default: 1536 for OpenAI, callers override for other models).
	EmbeddingDims int

	// EmbedRPS limits embedding calls per second to respect provider rate
	// limits during ingestion (default: 5).
	EmbedRPS float64

	// LexiconPath, when non-empty, points at a YAML file overriding the
	// built-in keyword lexicons.
	LexiconPath string
}

// IngestConfig contains ingestion pipeline tuning.
type IngestConfig struct {
	BatchSize      int     // Messages per embedding batch (default: 100)
	UpsertChunk    int     // Points per vector-index upsert (default: 100)
	MaxRetries     int     // Retry attempts per failed batch (default: 3)
	MaxFailureRate float64 // Failure rate above which the session is flagged (default: 0.30)
	MinMessages    int     // Minimum qualifying messages to build a profile (default: 10)
}

// RetrievalConfig contains memory retrieval tuning.
type RetrievalConfig struct {
	BroadTopK        int     // Broad semantic search fan-out (default: 15)
	BroadCap         int     // Broad results kept after threshold (default: 8)
	BroadMinScore    float64 // Broad similarity floor (default: 0.30)
	CandidateCap     int     // Matches kept per targeted candidate (default: 5)
	LooseCap         int     // Matches kept from the looser whole-utterance pass (default: 6)
	LooseMinScore    float64 // Looser pass similarity floor (default: 0.20)
	DirectCap        int     // Total literal substring matches kept (default: 10)
	OverallCap       int     // Merged result cap (default: 18)
	SearchConcurrent int     // Concurrent targeted searches (default: 4)
	EmbedCacheSize   int     // Utterance embedding LRU size (default: 256)
}

// ChatConfig contains chat-turn tuning.
type ChatConfig struct {
	HistoryLimit      int           // Turns of history injected into the prompt (default: 6)
	RepetitionWindow  int           // User utterances checked for repetition (default: 5)
	MaxResponseChars  int           // Hard response truncation length (default: 1200)
	PayloadBudget     int           // Character budget for injected examples/history (default: 6000)
	TurnDeadline      time.Duration // Whole-turn deadline before canned fallback (default: 30s)
	ReadinessMessages int           // Minimum corpus size before chat is allowed (default: 10)
}

// SessionConfig contains session lifecycle tuning.
type SessionConfig struct {
	TTL           time.Duration // Inactivity TTL before eviction (default: 24h)
	SweepInterval time.Duration // Eviction sweep period (default: 1h)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the REVERIE_ prefix.
func LoadConfig() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port:           getEnvInt("REVERIE_PORT", 6464),
			Host:           getEnv("REVERIE_HOST", "127.0.0.1"),
			RateLimitRPS:   getEnvFloat("REVERIE_RATE_LIMIT_RPS", 10),
			RateLimitBurst: getEnvInt("REVERIE_RATE_LIMIT_BURST", 20),
		},
		Storage: StorageConfig{
			VectorBackend: getEnv("REVERIE_VECTOR_BACKEND", "memory"),
			PostgresDSN:   getEnv("REVERIE_POSTGRES_DSN", ""),
			SQLitePath:    getEnv("REVERIE_SQLITE_PATH", "./data/reverie.db"),
			WatchDir:      getEnv("REVERIE_WATCH_DIR", ""),
		},
		Provider: ProviderConfig{
			Provider:        getEnv("REVERIE_PROVIDER", "ollama"),
			OpenAIAPIKey:    getEnv("REVERIE_OPENAI_API_KEY", ""),
			OpenAIModel:     getEnv("REVERIE_OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIEmbedding: getEnv("REVERIE_OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			OllamaURL:       getEnv("REVERIE_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:     getEnv("REVERIE_OLLAMA_MODEL", "qwen2.5:7b"),
			OllamaEmbedding: getEnv("REVERIE_OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDims:   getEnvInt("REVERIE_EMBEDDING_DIMS", 1536),
			EmbedRPS:        getEnvFloat("REVERIE_EMBED_RPS", 5),
			LexiconPath:     getEnv("REVERIE_LEXICON_PATH", ""),
		},
		Ingest: IngestConfig{
			BatchSize:      getEnvInt("REVERIE_INGEST_BATCH_SIZE", 100),
			UpsertChunk:    getEnvInt("REVERIE_INGEST_UPSERT_CHUNK", 100),
			MaxRetries:     getEnvInt("REVERIE_INGEST_MAX_RETRIES", 3),
			MaxFailureRate: getEnvFloat("REVERIE_INGEST_MAX_FAILURE_RATE", 0.30),
			MinMessages:    getEnvInt("REVERIE_INGEST_MIN_MESSAGES", 10),
		},
		Retrieval: RetrievalConfig{
			BroadTopK:        getEnvInt("REVERIE_RETRIEVAL_BROAD_TOPK", 15),
			BroadCap:         getEnvInt("REVERIE_RETRIEVAL_BROAD_CAP", 8),
			BroadMinScore:    getEnvFloat("REVERIE_RETRIEVAL_BROAD_MIN_SCORE", 0.30),
			CandidateCap:     getEnvInt("REVERIE_RETRIEVAL_CANDIDATE_CAP", 5),
			LooseCap:         getEnvInt("REVERIE_RETRIEVAL_LOOSE_CAP", 6),
			LooseMinScore:    getEnvFloat("REVERIE_RETRIEVAL_LOOSE_MIN_SCORE", 0.20),
			DirectCap:        getEnvInt("REVERIE_RETRIEVAL_DIRECT_CAP", 10),
			OverallCap:       getEnvInt("REVERIE_RETRIEVAL_OVERALL_CAP", 18),
			SearchConcurrent: getEnvInt("REVERIE_RETRIEVAL_CONCURRENCY", 4),
			EmbedCacheSize:   getEnvInt("REVERIE_RETRIEVAL_EMBED_CACHE", 256),
		},
		Chat: ChatConfig{
			HistoryLimit:      getEnvInt("REVERIE_CHAT_HISTORY_LIMIT", 6),
			RepetitionWindow:  getEnvInt("REVERIE_CHAT_REPETITION_WINDOW", 5),
			MaxResponseChars:  getEnvInt("REVERIE_CHAT_MAX_RESPONSE_CHARS", 1200),
			PayloadBudget:     getEnvInt("REVERIE_CHAT_PAYLOAD_BUDGET", 6000),
			TurnDeadline:      getEnvDuration("REVERIE_CHAT_TURN_DEADLINE", 30*time.Second),
			ReadinessMessages: getEnvInt("REVERIE_CHAT_READINESS_MESSAGES", 10),
		},
		Session: SessionConfig{
			TTL:           getEnvDuration("REVERIE_SESSION_TTL", 24*time.Hour),
			SweepInterval: getEnvDuration("REVERIE_SESSION_SWEEP_INTERVAL", time.Hour),
		},
	}, nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. If the environment variable exists but cannot be parsed as an
// integer, it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (Go duration
// syntax, e.g. "24h") or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
