package scoring

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/anujpatel512/bias-lens/store"
	"github.com/anujpatel512/bias-lens/types"
)

// DefaultCacheTTL matches SCORING_CACHE_TTL's default of 24 hours.
const DefaultCacheTTL = 86400 * time.Second

// Cache maps content fingerprints to previously computed assessments. TTL is
// evaluated lazily on lookup; there is no background sweep. Concurrent
// lookups for the same fingerprint collapse into a single compute: all
// callers receive the same assessment or the same failure. Distinct
// fingerprints never block each other.
type Cache struct {
	backend store.CacheBackend
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]*inflightCompute
}

type inflightCompute struct {
	done       chan struct{}
	assessment *types.BiasAssessment
	err        error
}

// NewCache creates a cache over the given backend. ttl <= 0 selects the
// default. The clock is time.Now; tests swap it via WithClock.
func NewCache(backend store.CacheBackend, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		backend:  backend,
		ttl:      ttl,
		now:      time.Now,
		inflight: make(map[string]*inflightCompute),
	}
}

// WithClock overrides the cache's clock and returns the cache. Test hook.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// GetOrCompute returns the cached assessment for fingerprint, or runs
// compute and caches its result. The entry is persisted only on success, so
// a transient failure never poisons future lookups.
func (c *Cache) GetOrCompute(ctx context.Context, fingerprint string, compute func(ctx context.Context) (*types.BiasAssessment, error)) (*types.BiasAssessment, error) {
	if assessment, ok := c.lookup(ctx, fingerprint); ok {
		return assessment, nil
	}

	c.mu.Lock()
	if call, running := c.inflight[fingerprint]; running {
		// Another caller is already computing this fingerprint; wait for it.
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.assessment, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &inflightCompute{done: make(chan struct{})}
	c.inflight[fingerprint] = call
	c.mu.Unlock()

	// Re-check under the in-flight claim: a previous computation may have
	// landed between the first lookup and taking ownership.
	if assessment, ok := c.lookup(ctx, fingerprint); ok {
		call.assessment = assessment
	} else {
		call.assessment, call.err = compute(ctx)
		if call.err == nil {
			c.persist(ctx, fingerprint, call.assessment)
		}
	}

	c.mu.Lock()
	delete(c.inflight, fingerprint)
	c.mu.Unlock()
	close(call.done)

	return call.assessment, call.err
}

// lookup returns a non-expired cached assessment if one exists.
func (c *Cache) lookup(ctx context.Context, fingerprint string) (*types.BiasAssessment, bool) {
	entry, ok, err := c.backend.Get(ctx, fingerprint)
	if err != nil {
		// A broken backend degrades to a recompute, not a hard failure.
		log.Printf("Warning: cache lookup failed for %s: %v", fingerprint, err)
		return nil, false
	}
	if !ok || entry.Assessment == nil {
		return nil, false
	}
	if entry.Expired(c.now()) {
		return nil, false
	}
	return entry.Assessment, true
}

func (c *Cache) persist(ctx context.Context, fingerprint string, assessment *types.BiasAssessment) {
	entry := &types.CacheEntry{
		Fingerprint: fingerprint,
		Assessment:  assessment,
		StoredAt:    c.now().UTC(),
		TTLSeconds:  int(c.ttl / time.Second),
	}
	if err := c.backend.Put(ctx, entry); err != nil {
		// Non-fatal: the assessment is still returned to the caller.
		log.Printf("Warning: failed to persist cache entry for %s: %v", fingerprint, err)
	}
}
