// Package store defines the persistence boundary of the pipeline. The core
// packages only ever see these interfaces; the Redis implementation is the
// production backend and the in-memory one serves tests and demos.
package store

import (
	"context"
	"errors"

	"github.com/anujpatel512/bias-lens/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// ArticleStore persists articles and everything derived from them.
type ArticleStore interface {
	// SaveArticle inserts a new article. Saving an article whose
	// fingerprint already exists is a no-op (ingestion-level dedup).
	SaveArticle(ctx context.Context, article *types.Article) error
	GetArticle(ctx context.Context, id string) (*types.Article, error)
	ListArticles(ctx context.Context) ([]*types.Article, error)
	// ListUnscored returns up to maxCount articles with no assessment yet,
	// ordered by article ID for reproducible batches.
	ListUnscored(ctx context.Context, maxCount int) ([]*types.Article, error)

	SaveAssessment(ctx context.Context, assessment *types.BiasAssessment) error
	GetAssessment(ctx context.Context, articleID string) (*types.BiasAssessment, error)

	SaveRepresentation(ctx context.Context, rep *types.ArticleRepresentation) error
	// ListRepresentations returns a copy of all stored representations;
	// callers treat the result as an immutable snapshot of the run.
	ListRepresentations(ctx context.Context) ([]*types.ArticleRepresentation, error)

	// SaveClusters replaces the persisted partition wholesale.
	SaveClusters(ctx context.Context, clusters []*types.NarrativeCluster) error
	ListClusters(ctx context.Context) ([]*types.NarrativeCluster, error)
}

// CacheBackend is the score cache's backing store. The cache owns entry
// lifecycle; backends only get/put opaque entries.
type CacheBackend interface {
	// Get returns the entry for a fingerprint, or ok=false when absent.
	// Backends may drop entries at any time (e.g. server-side expiry); the
	// cache re-checks TTL itself.
	Get(ctx context.Context, fingerprint string) (entry *types.CacheEntry, ok bool, err error)
	Put(ctx context.Context, entry *types.CacheEntry) error
}
