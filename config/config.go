package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config collects every tunable the pipeline consumes. Values are read once
// at startup; no other package reads the environment directly.
type Config struct {
	// Scoring
	ScoringCacheTTL     time.Duration // SCORING_CACHE_TTL (seconds)
	MaxArticlesPerBatch int           // MAX_ARTICLES_PER_BATCH
	ScoringConcurrency  int           // SCORING_CONCURRENCY
	BatchTimeout        time.Duration // SCORING_BATCH_TIMEOUT (seconds, 0 = none)
	MinContentLength    int           // MIN_CONTENT_LENGTH

	// Reasoning service (OpenAI-compatible chat completions)
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIEndpoint string

	// Embeddings
	CohereAPIKey   string
	EmbeddingModel string

	// Clustering
	SimilarityThreshold float32 // SIMILARITY_THRESHOLD

	// Redis (score cache + article store)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Kafka (optional ingestion-event consumer)
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// S3 archive (optional)
	S3Bucket string
	S3Region string
	S3Prefix string

	// API server
	Port string
}

// FromEnv builds a Config from environment variables, applying defaults for
// anything unset. Call godotenv.Load first if a .env file should be honored.
func FromEnv() Config {
	return Config{
		ScoringCacheTTL:     time.Duration(envInt("SCORING_CACHE_TTL", 86400)) * time.Second,
		MaxArticlesPerBatch: envInt("MAX_ARTICLES_PER_BATCH", 50),
		ScoringConcurrency:  envInt("SCORING_CONCURRENCY", 4),
		BatchTimeout:        time.Duration(envInt("SCORING_BATCH_TIMEOUT", 0)) * time.Second,
		MinContentLength:    envInt("MIN_CONTENT_LENGTH", 200),

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    envString("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEndpoint: envString("OPENAI_ENDPOINT", "https://api.openai.com/v1/chat/completions"),

		CohereAPIKey:   os.Getenv("COHERE_API_KEY"),
		EmbeddingModel: envString("EMBEDDING_MODEL", ""),

		SimilarityThreshold: envFloat32("SIMILARITY_THRESHOLD", 0.80),

		RedisAddr:     envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASS"),
		RedisDB:       envInt("REDIS_DB", 0),

		KafkaBrokers: envList("KAFKA_BROKERS"),
		KafkaTopic:   envString("KAFKA_TOPIC", "articles.ingested"),
		KafkaGroupID: envString("KAFKA_GROUP_ID", "bias-lens-scoring"),

		S3Bucket: strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region: strings.TrimSpace(os.Getenv("S3_REGION")),
		S3Prefix: normalizePrefix(os.Getenv("S3_PREFIX")),

		Port: envString("PORT", "8080"),
	}
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return defaultVal
}

func envFloat32(key string, defaultVal float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil && f > 0 {
			return float32(f)
		}
	}
	return defaultVal
}

func envList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	return strings.Trim(prefix, "/") + "/"
}
