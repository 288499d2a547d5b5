package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"SCORING_CACHE_TTL", "MAX_ARTICLES_PER_BATCH", "SCORING_CONCURRENCY",
		"SIMILARITY_THRESHOLD", "OPENAI_MODEL", "PORT",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	if cfg.ScoringCacheTTL != 86400*time.Second {
		t.Errorf("ScoringCacheTTL = %v, want 24h", cfg.ScoringCacheTTL)
	}
	if cfg.MaxArticlesPerBatch != 50 {
		t.Errorf("MaxArticlesPerBatch = %d, want 50", cfg.MaxArticlesPerBatch)
	}
	if cfg.ScoringConcurrency != 4 {
		t.Errorf("ScoringConcurrency = %d, want 4", cfg.ScoringConcurrency)
	}
	if cfg.SimilarityThreshold != 0.80 {
		t.Errorf("SimilarityThreshold = %f, want 0.80", cfg.SimilarityThreshold)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("OpenAIModel = %q", cfg.OpenAIModel)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SCORING_CACHE_TTL", "60")
	t.Setenv("MAX_ARTICLES_PER_BATCH", "10")
	t.Setenv("SIMILARITY_THRESHOLD", "0.9")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092,")
	t.Setenv("S3_PREFIX", "/snapshots/")

	cfg := FromEnv()

	if cfg.ScoringCacheTTL != time.Minute {
		t.Errorf("ScoringCacheTTL = %v, want 1m", cfg.ScoringCacheTTL)
	}
	if cfg.MaxArticlesPerBatch != 10 {
		t.Errorf("MaxArticlesPerBatch = %d, want 10", cfg.MaxArticlesPerBatch)
	}
	if cfg.SimilarityThreshold != 0.9 {
		t.Errorf("SimilarityThreshold = %f, want 0.9", cfg.SimilarityThreshold)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "broker-1:9092" || cfg.KafkaBrokers[1] != "broker-2:9092" {
		t.Errorf("KafkaBrokers = %v, want two trimmed entries", cfg.KafkaBrokers)
	}
	if cfg.S3Prefix != "snapshots/" {
		t.Errorf("S3Prefix = %q, want snapshots/", cfg.S3Prefix)
	}
}

func TestFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("MAX_ARTICLES_PER_BATCH", "lots")
	t.Setenv("SIMILARITY_THRESHOLD", "-1")

	cfg := FromEnv()
	if cfg.MaxArticlesPerBatch != 50 {
		t.Errorf("MaxArticlesPerBatch = %d, want default on unparsable value", cfg.MaxArticlesPerBatch)
	}
	if cfg.SimilarityThreshold != 0.80 {
		t.Errorf("SimilarityThreshold = %f, want default on negative value", cfg.SimilarityThreshold)
	}
}
