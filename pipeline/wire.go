package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/anujpatel512/bias-lens/archive"
	"github.com/anujpatel512/bias-lens/clustering"
	"github.com/anujpatel512/bias-lens/config"
	"github.com/anujpatel512/bias-lens/scoring"
	"github.com/anujpatel512/bias-lens/store"
)

// Build wires a full pipeline from configuration. Redis backs both the
// article store and the score cache when reachable; otherwise, when
// allowMemory is set (demo/one-shot mode), an in-memory store is used.
// The returned cleanup closes owned connections.
func Build(ctx context.Context, cfg config.Config, allowMemory bool) (*Pipeline, func(), error) {
	var articles store.ArticleStore
	var cacheBackend store.CacheBackend
	cleanup := func() {}

	redisStore, err := store.NewRedis(store.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		CacheTTL: cfg.ScoringCacheTTL,
	})
	if err != nil {
		if !allowMemory {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Printf("Warning: redis unavailable (%v); using in-memory store", err)
		mem := store.NewMemory()
		articles, cacheBackend = mem, mem
	} else {
		articles, cacheBackend = redisStore, redisStore
		cleanup = func() { redisStore.Close() }
	}

	client, err := scoring.NewOpenAIChat(scoring.OpenAIChatConfig{
		Endpoint: cfg.OpenAIEndpoint,
		Model:    cfg.OpenAIModel,
		APIKey:   cfg.OpenAIAPIKey,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("reasoning client: %w", err)
	}

	cache := scoring.NewCache(cacheBackend, cfg.ScoringCacheTTL)
	scorer := scoring.NewScorer(client, scoring.ScorerConfig{})
	prompts := scoring.NewPromptBuilder(cfg.MinContentLength)
	orchestrator := scoring.NewOrchestrator(prompts, cache, scorer, articles, scoring.OrchestratorConfig{
		MaxBatchSize: cfg.MaxArticlesPerBatch,
		Concurrency:  cfg.ScoringConcurrency,
		BatchTimeout: cfg.BatchTimeout,
	})

	provider := clustering.NewDefaultProvider(cfg.CohereAPIKey, cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	log.Printf("Embeddings provider: %s", provider.ModelName())

	p := &Pipeline{
		Articles:     articles,
		Orchestrator: orchestrator,
		Builder:      clustering.NewBuilder(provider),
		Engine:       clustering.NewEngine(cfg.SimilarityThreshold),
		BatchSize:    cfg.MaxArticlesPerBatch,
	}

	if cfg.S3Bucket != "" {
		archiver, err := archive.New(ctx, archive.Config{
			Bucket: cfg.S3Bucket,
			Region: cfg.S3Region,
			Prefix: cfg.S3Prefix,
		})
		if err != nil {
			log.Printf("Warning: failed to init S3 archiver: %v (archiving disabled)", err)
		} else {
			p.Archive = archiver
		}
	} else {
		log.Println("S3 not configured; archiving disabled")
	}

	return p, cleanup, nil
}
