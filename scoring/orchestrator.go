package scoring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/anujpatel512/bias-lens/store"
	"github.com/anujpatel512/bias-lens/types"
)

// Article scoring statuses in the batch result map.
const (
	StatusScored       = "scored"
	StatusFailed       = "failed"
	StatusNotAttempted = "not_attempted"
)

// ArticleScore is one article's outcome within a batch. Failures are data
// here, never batch-level errors: the caller can display partial results and
// retry only the failed subset.
type ArticleScore struct {
	Status     string                `json:"status"`
	Assessment *types.BiasAssessment `json:"assessment,omitempty"`
	Err        error                 `json:"-"`
	Error      string                `json:"error,omitempty"`
}

// OrchestratorConfig tunes batch behavior.
type OrchestratorConfig struct {
	// MaxBatchSize is the hard ceiling per ScoreBatch call (default 50).
	MaxBatchSize int
	// Concurrency bounds simultaneous scoring calls for distinct
	// fingerprints (default 4). Same-fingerprint calls are serialized by
	// the cache regardless.
	Concurrency int
	// BatchTimeout bounds a whole batch; articles not started when it
	// expires are marked not_attempted. Zero disables it.
	BatchTimeout time.Duration
}

// Orchestrator drives prompt building, cache lookup, and scoring for batches
// of articles, and writes successful assessments back to the article store.
type Orchestrator struct {
	prompts      *PromptBuilder
	cache        *Cache
	scorer       *Scorer
	articles     store.ArticleStore
	maxBatchSize int
	concurrency  int
	batchTimeout time.Duration
}

// NewOrchestrator wires the scoring pipeline together.
func NewOrchestrator(prompts *PromptBuilder, cache *Cache, scorer *Scorer, articles store.ArticleStore, cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Orchestrator{
		prompts:      prompts,
		cache:        cache,
		scorer:       scorer,
		articles:     articles,
		maxBatchSize: cfg.MaxBatchSize,
		concurrency:  cfg.Concurrency,
		batchTimeout: cfg.BatchTimeout,
	}
}

// ScoreBatch scores every article and returns a per-article result map keyed
// by article ID. The map's content does not depend on completion order. The
// only batch-level failure is ErrBatchTooLarge, raised before any external
// call is made.
func (o *Orchestrator) ScoreBatch(ctx context.Context, articles []*types.Article) (map[string]ArticleScore, error) {
	if len(articles) > o.maxBatchSize {
		return nil, fmt.Errorf("%d articles requested, ceiling is %d: %w",
			len(articles), o.maxBatchSize, ErrBatchTooLarge)
	}

	if o.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.batchTimeout)
		defer cancel()
	}

	results := make(map[string]ArticleScore, len(articles))
	var mu sync.Mutex
	var wg sync.WaitGroup

	queue := make(chan *types.Article)

	for i := 0; i < o.concurrency; i++ {
		go func() {
			for article := range queue {
				// A batch timeout skips everything not yet started.
				if ctx.Err() != nil {
					mu.Lock()
					results[article.ID] = ArticleScore{Status: StatusNotAttempted}
					mu.Unlock()
					wg.Done()
					continue
				}

				score := o.scoreOne(ctx, article)
				mu.Lock()
				results[article.ID] = score
				mu.Unlock()
				wg.Done()
			}
		}()
	}

	for _, article := range articles {
		wg.Add(1)
		queue <- article
	}
	wg.Wait()
	close(queue)

	return results, nil
}

// scoreOne runs the prompt -> cache -> scoring client path for one article
// and persists the assessment on success.
func (o *Orchestrator) scoreOne(ctx context.Context, article *types.Article) ArticleScore {
	prompt, err := o.prompts.Build(article)
	if err != nil {
		// Input errors are terminal and never retried.
		return failedScore(article.ID, err)
	}

	assessment, err := o.cache.GetOrCompute(ctx, article.ContentFingerprint, func(ctx context.Context) (*types.BiasAssessment, error) {
		return o.scorer.Score(ctx, article.ID, prompt)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return ArticleScore{Status: StatusNotAttempted}
		}
		return failedScore(article.ID, err)
	}

	// The cache hands the same assessment to every caller sharing the
	// fingerprint; clone before rebinding the ID and verifying phrases so
	// concurrent workers never write the cached value.
	assessment = assessment.Clone()
	assessment.ArticleID = article.ID

	if dropped := VerifyPhrases(assessment, article.Content); dropped > 0 {
		log.Printf("Dropped %d unverifiable bias phrase(s) for article %s", dropped, article.ID)
	}

	if err := o.articles.SaveAssessment(ctx, assessment); err != nil {
		return failedScore(article.ID, fmt.Errorf("persist assessment: %w", err))
	}

	return ArticleScore{Status: StatusScored, Assessment: assessment}
}

func failedScore(articleID string, err error) ArticleScore {
	var failure *ScoringFailedError
	if !errors.As(err, &failure) {
		failure = &ScoringFailedError{ArticleID: articleID, Reason: err.Error(), Err: err}
	}
	return ArticleScore{Status: StatusFailed, Err: failure, Error: failure.Reason}
}
