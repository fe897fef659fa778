package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings for the knowledge base server.
type Config struct {
	// ServerAddr is the listen address, e.g. ":8080".
	ServerAddr string

	// DataDir is the root of all per-user state (blobs, metadata, indexes).
	DataDir string

	// TikaServerURL points at the Apache Tika extraction server.
	TikaServerURL string

	// Ollama embedding backend.
	OllamaAPIURL    string
	OllamaModel     string
	EmbeddingDim    int
	EmbeddingStrict bool

	// VectorBackend selects where chunk embeddings live: "sqlite" keeps a
	// per-user embedded index under DataDir, "chroma" uses a remote server.
	VectorBackend string
	ChromaURL     string

	// QueueBackend selects the task feed: "memory" for a single process,
	// "redis" when uploads and workers run in separate processes.
	QueueBackend  string
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// MaxWorkers bounds concurrent document processing.
	MaxWorkers int

	// ChunkSize and ChunkOverlap are measured in runes. Zero means the
	// chunker package defaults apply.
	ChunkSize    int
	ChunkOverlap int

	// EnableVectorIndex turns the chunk/embed/index stage on.
	EnableVectorIndex bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is consulted first; missing variables fall back to defaults
// suited to local development.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	return &Config{
		ServerAddr:        getEnv("KB_SERVER_ADDR", ":8080"),
		DataDir:           getEnv("KB_DATA_DIR", "./data"),
		TikaServerURL:     getEnv("TIKA_SERVER_URL", "http://localhost:9998"),
		OllamaAPIURL:      getEnv("OLLAMA_API_URL", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_MODEL_NAME", "bge-m3"),
		EmbeddingDim:      getEnvInt("KB_EMBEDDING_DIM", 1024),
		EmbeddingStrict:   getEnvBool("KB_EMBEDDING_STRICT", false),
		VectorBackend:     getEnv("KB_VECTOR_BACKEND", "sqlite"),
		ChromaURL:         getEnv("CHROMA_URL", "http://localhost:8000"),
		QueueBackend:      getEnv("KB_QUEUE_BACKEND", "memory"),
		RedisHost:         getEnv("REDIS_HOST", "localhost"),
		RedisPort:         getEnvInt("REDIS_PORT", 6379),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		MaxWorkers:        getEnvInt("KB_MAX_WORKERS", 3),
		ChunkSize:         getEnvInt("KB_CHUNK_SIZE", 0),
		ChunkOverlap:      getEnvInt("KB_CHUNK_OVERLAP", 0),
		EnableVectorIndex: getEnvBool("KB_ENABLE_VECTOR_INDEX", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
