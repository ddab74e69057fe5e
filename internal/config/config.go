package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Gemini API
	GeminiAPIKey    string
	GenerationModel string
	EmbeddingModel  string
	GeminiTier      string

	// Document store / index
	DocumentDir     string
	ChunkSize       int
	RetrieveTopK    int
	RebuildInterval time.Duration

	// Embedding retry policy
	EmbedRetryAttempts uint
	EmbedRetryDelay    time.Duration

	// Conversation memory
	ConversationBackend string // "memory" (default), "redis"
	HistoryCap          int
	ContextWindow       int
	SessionTTL          time.Duration

	// Redis (conversation store + task queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Export
	ExportDir string

	// Telemetry
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GenerationModel: getEnv("GENERATION_MODEL", "gemini-2.5-flash"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		GeminiTier:      getEnv("GEMINI_TIER", "free"),

		DocumentDir:     getEnv("DOCUMENT_DIR", "./documents"),
		ChunkSize:       getEnvInt("CHUNK_SIZE", 500),
		RetrieveTopK:    getEnvInt("RETRIEVE_TOP_K", 3),
		RebuildInterval: getEnvDuration("REBUILD_INTERVAL", 6*time.Hour),

		EmbedRetryAttempts: uint(getEnvInt("EMBED_RETRY_ATTEMPTS", 5)),
		EmbedRetryDelay:    getEnvDuration("EMBED_RETRY_DELAY", 2*time.Second),

		ConversationBackend: getEnv("CONVERSATION_BACKEND", "memory"),
		HistoryCap:          getEnvInt("HISTORY_CAP", 20),
		ContextWindow:       getEnvInt("CONTEXT_WINDOW", 5),
		SessionTTL:          getEnvDuration("SESSION_TTL", 30*time.Minute),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ExportDir: getEnv("EXPORT_DIR", "./exports"),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be positive, got %d", cfg.ChunkSize)
	}

	if cfg.ContextWindow > cfg.HistoryCap {
		cfg.ContextWindow = cfg.HistoryCap
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
