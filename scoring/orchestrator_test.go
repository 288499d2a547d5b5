package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/anujpatel512/bias-lens/store"
	"github.com/anujpatel512/bias-lens/types"
)

func makeArticle(id, title string) *types.Article {
	content := fmt.Sprintf("%s. %s", title, strings.Repeat("The committee debated the measure at length. ", 5))
	return &types.Article{
		ID:                 id,
		Title:              title,
		Content:            content,
		ContentFingerprint: types.Fingerprint(title, content),
	}
}

func newTestOrchestrator(client ReasoningClient, articles store.ArticleStore, cfg OrchestratorConfig) *Orchestrator {
	scorer := NewScorer(client, ScorerConfig{MaxAttempts: 3, BackoffBase: time.Second})
	scorer.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	cacheBackend, ok := articles.(store.CacheBackend)
	if !ok {
		cacheBackend = store.NewMemory()
	}
	return NewOrchestrator(NewPromptBuilder(50), NewCache(cacheBackend, time.Hour), scorer, articles, cfg)
}

func TestScoreBatchPartialFailure(t *testing.T) {
	// One article's scoring fails persistently; the other four succeed.
	client := &fakeReasoningClient{
		respond: func(call int, prompt string) (string, error) {
			if strings.Contains(prompt, "Poison title") {
				return "", &TransportError{Err: errors.New("connection reset")}
			}
			return goodReply, nil
		},
	}
	mem := store.NewMemory()
	orchestrator := newTestOrchestrator(client, mem, OrchestratorConfig{})

	articles := []*types.Article{
		makeArticle("art-1", "Budget vote passes"),
		makeArticle("art-2", "Poison title"),
		makeArticle("art-3", "Harbor project stalls"),
		makeArticle("art-4", "School board elects chair"),
		makeArticle("art-5", "Transit fares frozen"),
	}

	results, err := orchestrator.ScoreBatch(context.Background(), articles)
	if err != nil {
		t.Fatalf("ScoreBatch failed: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}

	scored, failed := 0, 0
	for id, result := range results {
		switch result.Status {
		case StatusScored:
			scored++
			if result.Assessment == nil {
				t.Errorf("scored article %s has no assessment", id)
			} else if result.Assessment.ArticleID != id {
				t.Errorf("assessment for %s carries ID %s", id, result.Assessment.ArticleID)
			}
		case StatusFailed:
			failed++
			if id != "art-2" {
				t.Errorf("unexpected failure for %s: %s", id, result.Error)
			}
			var failure *ScoringFailedError
			if !errors.As(result.Err, &failure) {
				t.Errorf("failed result carries %T, want *ScoringFailedError", result.Err)
			}
		}
	}
	if scored != 4 || failed != 1 {
		t.Errorf("scored=%d failed=%d, want 4/1", scored, failed)
	}

	// Successful assessments are persisted; the failed one is absent.
	if _, err := mem.GetAssessment(context.Background(), "art-1"); err != nil {
		t.Errorf("assessment for art-1 not persisted: %v", err)
	}
	if _, err := mem.GetAssessment(context.Background(), "art-2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("failed article must have no assessment, got err=%v", err)
	}
}

func TestScoreBatchTooLargeFailsFast(t *testing.T) {
	client := &fakeReasoningClient{
		respond: func(call int, prompt string) (string, error) {
			return goodReply, nil
		},
	}
	orchestrator := newTestOrchestrator(client, store.NewMemory(), OrchestratorConfig{MaxBatchSize: 50})

	articles := make([]*types.Article, 51)
	for i := range articles {
		articles[i] = makeArticle(fmt.Sprintf("art-%02d", i), fmt.Sprintf("Title %d", i))
	}

	_, err := orchestrator.ScoreBatch(context.Background(), articles)
	if !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("expected ErrBatchTooLarge, got %v", err)
	}
	if client.callCount() != 0 {
		t.Errorf("client called %d times before rejection, want 0", client.callCount())
	}
}

func TestScoreBatchIdempotent(t *testing.T) {
	client := &fakeReasoningClient{
		respond: func(call int, prompt string) (string, error) {
			return goodReply, nil
		},
	}
	orchestrator := newTestOrchestrator(client, store.NewMemory(), OrchestratorConfig{})

	articles := []*types.Article{
		makeArticle("art-1", "Budget vote passes"),
		makeArticle("art-2", "Harbor project stalls"),
	}

	ctx := context.Background()
	if _, err := orchestrator.ScoreBatch(ctx, articles); err != nil {
		t.Fatalf("first ScoreBatch failed: %v", err)
	}
	callsAfterFirst := client.callCount()

	results, err := orchestrator.ScoreBatch(ctx, articles)
	if err != nil {
		t.Fatalf("second ScoreBatch failed: %v", err)
	}
	if client.callCount() != callsAfterFirst {
		t.Errorf("second run made %d extra external calls, want 0", client.callCount()-callsAfterFirst)
	}
	for id, result := range results {
		if result.Status != StatusScored {
			t.Errorf("article %s status = %s on rerun, want scored", id, result.Status)
		}
	}
}

func TestScoreBatchSharedFingerprintComputesOnce(t *testing.T) {
	client := &fakeReasoningClient{
		respond: func(call int, prompt string) (string, error) {
			return goodReply, nil
		},
	}
	orchestrator := newTestOrchestrator(client, store.NewMemory(), OrchestratorConfig{})

	// Same content republished under two IDs: identical fingerprints.
	a := makeArticle("art-1", "Syndicated story")
	b := makeArticle("art-2", "Syndicated story")
	b.ContentFingerprint = a.ContentFingerprint

	results, err := orchestrator.ScoreBatch(context.Background(), []*types.Article{a, b})
	if err != nil {
		t.Fatalf("ScoreBatch failed: %v", err)
	}
	if client.callCount() != 1 {
		t.Errorf("client called %d times for one fingerprint, want 1", client.callCount())
	}
	for id, result := range results {
		if result.Status != StatusScored {
			t.Fatalf("article %s status = %s, want scored", id, result.Status)
		}
		if result.Assessment.ArticleID != id {
			t.Errorf("assessment for %s carries ID %s", id, result.Assessment.ArticleID)
		}
	}
}

func TestScoreBatchSharedFingerprintIsolatesPhraseVerification(t *testing.T) {
	// One verifiable phrase and one hallucinated one; verification must
	// trim each caller's copy without touching the cached assessment that
	// both articles share.
	reply := `{
  "scores": {"framing": 2, "omission": 2, "tone": 2, "source_selection": 2, "word_choice": 4},
  "justifications": {},
  "bias_phrases": [
    {"text": "committee debated the measure", "dimension": "word_choice"},
    {"text": "inflammatory rhetoric", "dimension": "tone"}
  ]
}`
	client := &fakeReasoningClient{
		respond: func(call int, prompt string) (string, error) {
			return reply, nil
		},
	}
	mem := store.NewMemory()
	orchestrator := newTestOrchestrator(client, mem, OrchestratorConfig{})

	a := makeArticle("art-1", "Syndicated story")
	b := makeArticle("art-2", "Syndicated story")
	b.ContentFingerprint = a.ContentFingerprint

	results, err := orchestrator.ScoreBatch(context.Background(), []*types.Article{a, b})
	if err != nil {
		t.Fatalf("ScoreBatch failed: %v", err)
	}
	if client.callCount() != 1 {
		t.Fatalf("client called %d times for one fingerprint, want 1", client.callCount())
	}

	for id, result := range results {
		if result.Status != StatusScored {
			t.Fatalf("article %s status = %s, want scored", id, result.Status)
		}
		phrases := result.Assessment.BiasPhrases
		if len(phrases) != 1 || phrases[0].Text != "committee debated the measure" {
			t.Errorf("article %s phrases = %+v, want only the verifiable one", id, phrases)
		}
	}

	// The cached assessment keeps everything the model returned.
	entry, ok, err := mem.Get(context.Background(), a.ContentFingerprint)
	if err != nil || !ok {
		t.Fatalf("cache entry missing: ok=%v err=%v", ok, err)
	}
	if len(entry.Assessment.BiasPhrases) != 2 {
		t.Errorf("cached assessment has %d phrases, want 2 (verification must not write through)", len(entry.Assessment.BiasPhrases))
	}

	// And the two results own independent slices.
	results["art-1"].Assessment.BiasPhrases[0].Text = "overwritten"
	if results["art-2"].Assessment.BiasPhrases[0].Text != "committee debated the measure" {
		t.Error("results share a phrase backing array across articles")
	}
}

func TestScoreBatchShortContentFails(t *testing.T) {
	client := &fakeReasoningClient{
		respond: func(call int, prompt string) (string, error) {
			return goodReply, nil
		},
	}
	orchestrator := newTestOrchestrator(client, store.NewMemory(), OrchestratorConfig{})

	short := &types.Article{
		ID:                 "art-1",
		Title:              "Stub",
		Content:            "Too short.",
		ContentFingerprint: types.Fingerprint("Stub", "Too short."),
	}

	results, err := orchestrator.ScoreBatch(context.Background(), []*types.Article{short})
	if err != nil {
		t.Fatalf("ScoreBatch failed: %v", err)
	}
	result := results["art-1"]
	if result.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if client.callCount() != 0 {
		t.Errorf("client called %d times for unscorable content, want 0", client.callCount())
	}
}

func TestScoreBatchTimeoutMarksNotAttempted(t *testing.T) {
	client := &fakeReasoningClient{
		respond: func(call int, prompt string) (string, error) {
			return goodReply, nil
		},
	}
	blocking := &blockingClient{inner: client}
	orchestrator := newTestOrchestrator(blocking, store.NewMemory(), OrchestratorConfig{
		Concurrency:  1,
		BatchTimeout: 50 * time.Millisecond,
	})

	articles := []*types.Article{
		makeArticle("art-1", "First story"),
		makeArticle("art-2", "Second story"),
		makeArticle("art-3", "Third story"),
	}

	results, err := orchestrator.ScoreBatch(context.Background(), articles)
	if err != nil {
		t.Fatalf("ScoreBatch failed: %v", err)
	}
	for id, result := range results {
		if result.Status != StatusNotAttempted {
			t.Errorf("article %s status = %s, want not_attempted", id, result.Status)
		}
	}
}

// blockingClient hangs every call until the context expires, simulating a
// stalled reasoning service.
type blockingClient struct {
	inner ReasoningClient
}

func (b *blockingClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (b *blockingClient) ModelVersion() string { return b.inner.ModelVersion() }
