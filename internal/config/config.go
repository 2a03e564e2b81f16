package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values.
type Config struct {
	// MongoDB connection
	MongoURL string
	Database string

	// Vector search
	EmbeddingDim    int
	VectorIndexName string

	// Result cache
	CacheTTL time.Duration

	// Embedding backend
	EmbeddingProvider string
	OllamaHost        string
	EmbeddingModel    string
	VoyageAPIKey      string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		// MongoDB
		MongoURL: getEnv("MONGO_URL", "mongodb://localhost:27017"),
		Database: getEnv("ENGRAM_DATABASE", "engram"),

		// Vector search
		EmbeddingDim:    getEnvInt("ENGRAM_EMBEDDING_DIM", 1536),
		VectorIndexName: getEnv("ENGRAM_VECTOR_INDEX", "vector_index"),

		// Cache
		CacheTTL: getEnvDuration("ENGRAM_CACHE_TTL", 24*time.Hour),

		// Embedding. An empty model falls through to the provider's own
		// default (all-minilm:l6-v2 for ollama, voyage-3 for voyage).
		EmbeddingProvider: getEnv("ENGRAM_EMBEDDING_PROVIDER", "ollama"),
		OllamaHost:        getEnv("OLLAMA_HOST", "http://localhost:11434"),
		EmbeddingModel:    getEnv("ENGRAM_EMBEDDING_MODEL", ""),
		VoyageAPIKey:      getEnv("VOYAGE_API_KEY", ""),

		// Logging
		LogFile:  getEnv("ENGRAM_LOG_FILE", "/tmp/engram.log"),
		LogLevel: parseLogLevel(getEnv("ENGRAM_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
