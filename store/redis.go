package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/anujpatel512/bias-lens/types"
)

const (
	keyArticlePrefix        = "article:"
	keyAssessmentPrefix     = "assessment:"
	keyRepresentationPrefix = "representation:"
	keyCachePrefix          = "biascache:"
	keyFingerprintPrefix    = "fingerprint:"
	keyArticleIndex         = "articles"
	keyClusters             = "clusters"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	// CacheTTL is applied server-side to cache entries as a safety net; the
	// score cache still evaluates TTL lazily on read.
	CacheTTL time.Duration
}

// Redis implements ArticleStore and CacheBackend on a single Redis instance.
// Records are stored as JSON values; the article set is indexed by a sorted
// set member per ID.
type Redis struct {
	client   *redis.Client
	cacheTTL time.Duration
}

// NewRedis connects to Redis and verifies connectivity.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &Redis{client: client, cacheTTL: cfg.CacheTTL}, nil
}

// Close closes the underlying Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) SaveArticle(ctx context.Context, article *types.Article) error {
	if article.ContentFingerprint != "" {
		existing, err := r.client.Get(ctx, keyFingerprintPrefix+article.ContentFingerprint).Result()
		if err == nil && existing != "" && existing != article.ID {
			// Same text already ingested under a different ID; skip.
			return nil
		}
		if err != nil && err != redis.Nil {
			return fmt.Errorf("fingerprint lookup: %w", err)
		}
	}

	raw, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("marshal article %s: %w", article.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, keyArticlePrefix+article.ID, raw, 0)
	pipe.SAdd(ctx, keyArticleIndex, article.ID)
	if article.ContentFingerprint != "" {
		pipe.Set(ctx, keyFingerprintPrefix+article.ContentFingerprint, article.ID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save article %s: %w", article.ID, err)
	}
	return nil
}

func (r *Redis) GetArticle(ctx context.Context, id string) (*types.Article, error) {
	raw, err := r.client.Get(ctx, keyArticlePrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article %s: %w", id, err)
	}

	var article types.Article
	if err := json.Unmarshal(raw, &article); err != nil {
		return nil, fmt.Errorf("decode article %s: %w", id, err)
	}
	return &article, nil
}

func (r *Redis) ListArticles(ctx context.Context) ([]*types.Article, error) {
	ids, err := r.sortedArticleIDs(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*types.Article, 0, len(ids))
	for _, id := range ids {
		article, err := r.GetArticle(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, article)
	}
	return out, nil
}

func (r *Redis) ListUnscored(ctx context.Context, maxCount int) ([]*types.Article, error) {
	articles, err := r.ListArticles(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*types.Article, 0, maxCount)
	for _, article := range articles {
		exists, err := r.client.Exists(ctx, keyAssessmentPrefix+article.ID).Result()
		if err != nil {
			return nil, fmt.Errorf("check assessment for %s: %w", article.ID, err)
		}
		if exists == 1 {
			continue
		}
		out = append(out, article)
		if len(out) == maxCount {
			break
		}
	}
	return out, nil
}

func (r *Redis) SaveAssessment(ctx context.Context, assessment *types.BiasAssessment) error {
	raw, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("marshal assessment for %s: %w", assessment.ArticleID, err)
	}
	if err := r.client.Set(ctx, keyAssessmentPrefix+assessment.ArticleID, raw, 0).Err(); err != nil {
		return fmt.Errorf("save assessment for %s: %w", assessment.ArticleID, err)
	}
	return nil
}

func (r *Redis) GetAssessment(ctx context.Context, articleID string) (*types.BiasAssessment, error) {
	raw, err := r.client.Get(ctx, keyAssessmentPrefix+articleID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment for %s: %w", articleID, err)
	}

	var assessment types.BiasAssessment
	if err := json.Unmarshal(raw, &assessment); err != nil {
		return nil, fmt.Errorf("decode assessment for %s: %w", articleID, err)
	}
	return &assessment, nil
}

func (r *Redis) SaveRepresentation(ctx context.Context, rep *types.ArticleRepresentation) error {
	raw, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal representation for %s: %w", rep.ArticleID, err)
	}
	if err := r.client.Set(ctx, keyRepresentationPrefix+rep.ArticleID, raw, 0).Err(); err != nil {
		return fmt.Errorf("save representation for %s: %w", rep.ArticleID, err)
	}
	return nil
}

func (r *Redis) ListRepresentations(ctx context.Context) ([]*types.ArticleRepresentation, error) {
	ids, err := r.sortedArticleIDs(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*types.ArticleRepresentation, 0, len(ids))
	for _, id := range ids {
		raw, err := r.client.Get(ctx, keyRepresentationPrefix+id).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get representation for %s: %w", id, err)
		}
		var rep types.ArticleRepresentation
		if err := json.Unmarshal(raw, &rep); err != nil {
			return nil, fmt.Errorf("decode representation for %s: %w", id, err)
		}
		out = append(out, &rep)
	}
	return out, nil
}

func (r *Redis) SaveClusters(ctx context.Context, clusters []*types.NarrativeCluster) error {
	raw, err := json.Marshal(clusters)
	if err != nil {
		return fmt.Errorf("marshal clusters: %w", err)
	}
	if err := r.client.Set(ctx, keyClusters, raw, 0).Err(); err != nil {
		return fmt.Errorf("save clusters: %w", err)
	}
	return nil
}

func (r *Redis) ListClusters(ctx context.Context) ([]*types.NarrativeCluster, error) {
	raw, err := r.client.Get(ctx, keyClusters).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clusters: %w", err)
	}

	var clusters []*types.NarrativeCluster
	if err := json.Unmarshal(raw, &clusters); err != nil {
		return nil, fmt.Errorf("decode clusters: %w", err)
	}
	return clusters, nil
}

// Get implements CacheBackend.
func (r *Redis) Get(ctx context.Context, fingerprint string) (*types.CacheEntry, bool, error) {
	raw, err := r.client.Get(ctx, keyCachePrefix+fingerprint).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", fingerprint, err)
	}

	var entry types.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("cache decode %s: %w", fingerprint, err)
	}
	return &entry, true, nil
}

// Put implements CacheBackend. The server-side expiration mirrors the
// entry's TTL so abandoned entries do not accumulate.
func (r *Redis) Put(ctx context.Context, entry *types.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", entry.Fingerprint, err)
	}

	expiry := r.cacheTTL
	if entry.TTLSeconds > 0 {
		expiry = time.Duration(entry.TTLSeconds) * time.Second
	}
	if err := r.client.Set(ctx, keyCachePrefix+entry.Fingerprint, raw, expiry).Err(); err != nil {
		return fmt.Errorf("cache put %s: %w", entry.Fingerprint, err)
	}
	return nil
}

func (r *Redis) sortedArticleIDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, keyArticleIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list article ids: %w", err)
	}
	// SMEMBERS order is unspecified; sort for reproducible batches.
	sort.Strings(ids)
	return ids, nil
}
