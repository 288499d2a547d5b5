// Package pipeline drives end-to-end runs: ingest, score, represent,
// cluster, persist, and optionally archive.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anujpatel512/bias-lens/claims"
	"github.com/anujpatel512/bias-lens/clustering"
	"github.com/anujpatel512/bias-lens/ingest"
	"github.com/anujpatel512/bias-lens/scoring"
	"github.com/anujpatel512/bias-lens/store"
	"github.com/anujpatel512/bias-lens/types"
)

// Archiver is the optional snapshot sink; *archive.Archiver satisfies it.
type Archiver interface {
	PutAssessment(ctx context.Context, article *types.Article, assessment *types.BiasAssessment) error
	PutClusters(ctx context.Context, runID string, clusters []*types.NarrativeCluster) error
}

// Pipeline owns one set of wired components. Runs are request-driven; no two
// pipeline instances share mutable state beyond the store and cache backend.
type Pipeline struct {
	Articles     store.ArticleStore
	Orchestrator *scoring.Orchestrator
	Builder      *clustering.Builder
	Engine       *clustering.Engine
	Archive      Archiver // nil disables archiving
	BatchSize    int
}

// Ingest pulls one feed into the store and returns the number of articles
// saved.
func (p *Pipeline) Ingest(ctx context.Context, feed string, maxCount int) (int, error) {
	return ingest.Run(ctx, p.Articles, feed, maxCount)
}

// ScoreUnscored scores up to BatchSize articles that have no assessment yet
// and returns the per-article result map.
func (p *Pipeline) ScoreUnscored(ctx context.Context) (map[string]scoring.ArticleScore, error) {
	articles, err := p.Articles.ListUnscored(ctx, p.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list unscored: %w", err)
	}
	if len(articles) == 0 {
		log.Println("No articles need scoring")
		return map[string]scoring.ArticleScore{}, nil
	}
	log.Printf("Scoring %d article(s)...", len(articles))

	results, err := p.Orchestrator.ScoreBatch(ctx, articles)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*types.Article, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
	}

	scored, failed, skipped := 0, 0, 0
	for id, result := range results {
		switch result.Status {
		case scoring.StatusScored:
			scored++
			p.enrichClaims(ctx, byID[id], result.Assessment)
			p.archiveAssessment(ctx, byID[id], result.Assessment)
		case scoring.StatusFailed:
			failed++
		case scoring.StatusNotAttempted:
			skipped++
		}
	}
	log.Printf("Scoring complete: %d scored, %d failed, %d not attempted", scored, failed, skipped)

	return results, nil
}

// enrichClaims backfills notable claims with local extraction when the
// model returned none, attaching a primary-source lead where the heuristics
// find one. Advisory metadata only.
func (p *Pipeline) enrichClaims(ctx context.Context, article *types.Article, assessment *types.BiasAssessment) {
	if article == nil || assessment == nil || len(assessment.NotableClaims) > 0 {
		return
	}
	extracted := claims.Extract(article.Content)
	if len(extracted) == 0 {
		return
	}
	for i := range extracted {
		extracted[i].Source = claims.LinkPrimarySource(extracted[i])
	}

	assessment.NotableClaims = extracted
	if err := p.Articles.SaveAssessment(ctx, assessment); err != nil {
		log.Printf("Warning: failed to persist extracted claims for %s: %v", article.ID, err)
	}
}

func (p *Pipeline) archiveAssessment(ctx context.Context, article *types.Article, assessment *types.BiasAssessment) {
	if p.Archive == nil || article == nil {
		return
	}
	if err := p.Archive.PutAssessment(ctx, article, assessment); err != nil {
		log.Printf("Warning: failed to archive assessment for %s: %v", article.ID, err)
	}
}

// Recluster rebuilds representations for articles that lack one, snapshots
// all representations, clusters them, and persists the partition wholesale.
func (p *Pipeline) Recluster(ctx context.Context) ([]*types.NarrativeCluster, error) {
	articles, err := p.Articles.ListArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	if len(articles) == 0 {
		return nil, nil
	}

	if err := p.buildMissingRepresentations(ctx, articles); err != nil {
		return nil, err
	}

	// Snapshot: the store hands back copies, so concurrent ingestion during
	// the run is never observed mid-clustering.
	representations, err := p.Articles.ListRepresentations(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot representations: %w", err)
	}

	clusters, err := p.Engine.Cluster(representations)
	if err != nil {
		return nil, err
	}

	titles := make(map[string]string, len(articles))
	for _, a := range articles {
		titles[a.ID] = a.Title
	}
	clustering.LabelClusters(clusters, titles)

	if err := p.Articles.SaveClusters(ctx, clusters); err != nil {
		return nil, fmt.Errorf("persist clusters: %w", err)
	}
	log.Printf("Clustering complete: %d cluster(s) over %d representation(s)", len(clusters), len(representations))

	if p.Archive != nil {
		runID := time.Now().UTC().Format("20060102T150405Z")
		if err := p.Archive.PutClusters(ctx, runID, clusters); err != nil {
			log.Printf("Warning: failed to archive cluster partition: %v", err)
		}
	}

	return clusters, nil
}

func (p *Pipeline) buildMissingRepresentations(ctx context.Context, articles []*types.Article) error {
	existing, err := p.Articles.ListRepresentations(ctx)
	if err != nil {
		return fmt.Errorf("list representations: %w", err)
	}
	have := make(map[string]string, len(existing))
	for _, rep := range existing {
		have[rep.ArticleID] = rep.Method
	}

	var missing []*types.Article
	for _, article := range articles {
		if _, ok := have[article.ID]; !ok {
			missing = append(missing, article)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	reps, err := p.Builder.Represent(ctx, missing)
	if err != nil {
		return fmt.Errorf("build representations: %w", err)
	}
	for _, rep := range reps {
		if err := p.Articles.SaveRepresentation(ctx, rep); err != nil {
			return fmt.Errorf("persist representation for %s: %w", rep.ArticleID, err)
		}
	}
	log.Printf("Built %d representation(s)", len(reps))
	return nil
}

// RunOnce executes a single end-to-end cycle: optional ingest, scoring, and
// reclustering. feed may be empty to skip ingestion.
func (p *Pipeline) RunOnce(ctx context.Context, feed string, maxCount int) error {
	log.Println("=== Bias-Lens Pipeline Run ===")

	if feed != "" {
		saved, err := p.Ingest(ctx, feed, maxCount)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		log.Printf("Ingested %d new article(s)", saved)
	}

	if _, err := p.ScoreUnscored(ctx); err != nil {
		return fmt.Errorf("score: %w", err)
	}

	if _, err := p.Recluster(ctx); err != nil {
		return fmt.Errorf("cluster: %w", err)
	}

	log.Println("=== Pipeline Run Complete ===")
	return nil
}
