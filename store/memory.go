package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anujpatel512/bias-lens/types"
)

// Memory is an in-process ArticleStore and CacheBackend used by tests and
// the demo seed. Safe for concurrent use.
type Memory struct {
	mu              sync.RWMutex
	articles        map[string]*types.Article
	fingerprints    map[string]string // fingerprint -> article ID
	assessments     map[string]*types.BiasAssessment
	representations map[string]*types.ArticleRepresentation
	clusters        []*types.NarrativeCluster
	cacheEntries    map[string]*types.CacheEntry

	// Now is the clock used for cache bookkeeping; overridable in tests.
	Now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		articles:        make(map[string]*types.Article),
		fingerprints:    make(map[string]string),
		assessments:     make(map[string]*types.BiasAssessment),
		representations: make(map[string]*types.ArticleRepresentation),
		cacheEntries:    make(map[string]*types.CacheEntry),
		Now:             time.Now,
	}
}

func (m *Memory) SaveArticle(ctx context.Context, article *types.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, exists := m.fingerprints[article.ContentFingerprint]; exists && id != article.ID {
		return nil
	}
	cp := *article
	m.articles[article.ID] = &cp
	if article.ContentFingerprint != "" {
		m.fingerprints[article.ContentFingerprint] = article.ID
	}
	return nil
}

func (m *Memory) GetArticle(ctx context.Context, id string) (*types.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	article, ok := m.articles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *article
	return &cp, nil
}

func (m *Memory) ListArticles(ctx context.Context) ([]*types.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Article, 0, len(m.articles))
	for _, a := range m.articles {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListUnscored(ctx context.Context, maxCount int) ([]*types.Article, error) {
	all, err := m.ListArticles(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Article, 0, maxCount)
	for _, a := range all {
		if _, scored := m.assessments[a.ID]; scored {
			continue
		}
		out = append(out, a)
		if len(out) == maxCount {
			break
		}
	}
	return out, nil
}

func (m *Memory) SaveAssessment(ctx context.Context, assessment *types.BiasAssessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments[assessment.ArticleID] = assessment.Clone()
	return nil
}

func (m *Memory) GetAssessment(ctx context.Context, articleID string) (*types.BiasAssessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	assessment, ok := m.assessments[articleID]
	if !ok {
		return nil, ErrNotFound
	}
	return assessment.Clone(), nil
}

func (m *Memory) SaveRepresentation(ctx context.Context, rep *types.ArticleRepresentation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rep
	cp.Vector = append([]float32(nil), rep.Vector...)
	m.representations[rep.ArticleID] = &cp
	return nil
}

func (m *Memory) ListRepresentations(ctx context.Context) ([]*types.ArticleRepresentation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.ArticleRepresentation, 0, len(m.representations))
	for _, rep := range m.representations {
		cp := *rep
		cp.Vector = append([]float32(nil), rep.Vector...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArticleID < out[j].ArticleID })
	return out, nil
}

func (m *Memory) SaveClusters(ctx context.Context, clusters []*types.NarrativeCluster) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusters = append([]*types.NarrativeCluster(nil), clusters...)
	return nil
}

func (m *Memory) ListClusters(ctx context.Context) ([]*types.NarrativeCluster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*types.NarrativeCluster(nil), m.clusters...), nil
}

// Get implements CacheBackend.
func (m *Memory) Get(ctx context.Context, fingerprint string) (*types.CacheEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.cacheEntries[fingerprint]
	if !ok {
		return nil, false, nil
	}
	return entry, true, nil
}

// Put implements CacheBackend.
func (m *Memory) Put(ctx context.Context, entry *types.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheEntries[entry.Fingerprint] = entry
	return nil
}
