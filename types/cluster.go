package types

import "time"

// ArticleRepresentation is the comparable vector derived from an article's
// text, used only for clustering. Disposable: it can always be recomputed
// from the article, and is never authoritative state.
type ArticleRepresentation struct {
	ArticleID string    `json:"article_id"`
	Vector    []float32 `json:"vector"`
	// Method identifies the provider and model version that produced the
	// vector (e.g. "cohere/embed-english-v3.0"). Representations built by
	// different methods must never be clustered together.
	Method  string    `json:"method"`
	BuiltAt time.Time `json:"built_at"`
}

// NarrativeCluster groups articles judged to cover the same underlying
// event. Clusters partition the article set of a run; they are recomputed
// wholesale each run, never mutated incrementally.
type NarrativeCluster struct {
	ClusterID string `json:"cluster_id"`
	// MemberArticleIDs is sorted ascending so identical partitions always
	// serialize identically.
	MemberArticleIDs []string  `json:"member_article_ids"`
	Centroid         []float32 `json:"centroid,omitempty"`
	Label            string    `json:"label,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
