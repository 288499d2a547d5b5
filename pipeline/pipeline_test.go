package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anujpatel512/bias-lens/clustering"
	"github.com/anujpatel512/bias-lens/scoring"
	"github.com/anujpatel512/bias-lens/store"
	"github.com/anujpatel512/bias-lens/types"
)

const scoreReply = `{
  "scores": {"framing": 2, "omission": 3, "tone": 2, "source_selection": 3, "word_choice": 2},
  "justifications": {"framing": "mild", "omission": "partial", "tone": "calm", "source_selection": "narrow", "word_choice": "plain"}
}`

type stubClient struct {
	mu    sync.Mutex
	calls int
}

func (s *stubClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return scoreReply, nil
}

func (s *stubClient) ModelVersion() string { return "stub-model" }

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingArchiver struct {
	assessments int
	clusterRuns int
}

func (r *recordingArchiver) PutAssessment(ctx context.Context, article *types.Article, assessment *types.BiasAssessment) error {
	r.assessments++
	return nil
}

func (r *recordingArchiver) PutClusters(ctx context.Context, runID string, clusters []*types.NarrativeCluster) error {
	r.clusterRuns++
	return nil
}

func seedArticle(id, title, content string) *types.Article {
	return &types.Article{
		ID:                 id,
		Title:              title,
		Content:            content,
		ContentFingerprint: types.Fingerprint(title, content),
		FetchedAt:          time.Now().UTC(),
	}
}

func newTestPipeline(t *testing.T) (*Pipeline, *store.Memory, *stubClient, *recordingArchiver) {
	t.Helper()

	mem := store.NewMemory()
	client := &stubClient{}
	archiver := &recordingArchiver{}

	orchestrator := scoring.NewOrchestrator(
		scoring.NewPromptBuilder(50),
		scoring.NewCache(mem, time.Hour),
		scoring.NewScorer(client, scoring.ScorerConfig{}),
		mem,
		scoring.OrchestratorConfig{},
	)

	p := &Pipeline{
		Articles:     mem,
		Orchestrator: orchestrator,
		Builder:      clustering.NewBuilder(clustering.NewLexicalEmbeddings(256)),
		Engine:       clustering.NewEngine(0.8),
		Archive:      archiver,
		BatchSize:    50,
	}
	return p, mem, client, archiver
}

func seedNewsroom(t *testing.T, mem *store.Memory) {
	t.Helper()

	climate := "The Senate passed a sweeping climate bill early Saturday after a marathon session. " +
		"Senator Ruiz said the vote was a turning point for energy policy. " +
		"Supporters said the measure would cut emissions by forty percent. " +
		"A recent study found the plan would lower household energy costs."

	articles := []*types.Article{
		seedArticle("art-a", "Senate passes sweeping climate bill", climate),
		seedArticle("art-b", "Senate passes sweeping climate bill overnight", climate+" Debate ran past midnight."),
		seedArticle("art-c", "Harbor stadium deal approved despite protests",
			"City council members approved waterfront stadium financing on Tuesday despite weeks of neighborhood "+
				"protests. An independent audit found the revenue projections optimistic."),
	}
	for _, a := range articles {
		if err := mem.SaveArticle(context.Background(), a); err != nil {
			t.Fatalf("SaveArticle failed: %v", err)
		}
	}
}

func TestScoreUnscoredScoresAndArchives(t *testing.T) {
	p, mem, client, archiver := newTestPipeline(t)
	seedNewsroom(t, mem)
	ctx := context.Background()

	results, err := p.ScoreUnscored(ctx)
	if err != nil {
		t.Fatalf("ScoreUnscored failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for id, result := range results {
		if result.Status != scoring.StatusScored {
			t.Errorf("article %s status = %s, want scored", id, result.Status)
		}
	}
	if client.callCount() != 3 {
		t.Errorf("reasoning client called %d times, want 3", client.callCount())
	}
	if archiver.assessments != 3 {
		t.Errorf("archived %d assessments, want 3", archiver.assessments)
	}

	// The model returned no notable claims; local extraction backfills them
	// for articles with attributed sentences.
	assessment, err := mem.GetAssessment(ctx, "art-a")
	if err != nil {
		t.Fatalf("GetAssessment failed: %v", err)
	}
	if len(assessment.NotableClaims) == 0 {
		t.Error("expected backfilled notable claims for art-a")
	}
	if !strings.Contains(assessment.NotableClaims[0].Span, "said") {
		t.Errorf("claim span %q does not look attributed", assessment.NotableClaims[0].Span)
	}

	// The study-backed claim picks up a primary-source lead.
	var sourced *types.SourceLink
	for _, claim := range assessment.NotableClaims {
		if claim.Source != nil {
			sourced = claim.Source
			break
		}
	}
	if sourced == nil {
		t.Error("expected a backfilled claim with a primary-source lead")
	} else if sourced.SourceType != "research" {
		t.Errorf("source type = %q, want research", sourced.SourceType)
	}

	// A second pass finds nothing unscored and makes no external calls.
	again, err := p.ScoreUnscored(ctx)
	if err != nil {
		t.Fatalf("second ScoreUnscored failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second pass scored %d articles, want 0", len(again))
	}
	if client.callCount() != 3 {
		t.Errorf("second pass made %d extra calls, want 0", client.callCount()-3)
	}
}

func TestReclusterGroupsNarratives(t *testing.T) {
	p, mem, _, archiver := newTestPipeline(t)
	seedNewsroom(t, mem)
	ctx := context.Background()

	clusters, err := p.Recluster(ctx)
	if err != nil {
		t.Fatalf("Recluster failed: %v", err)
	}
	if len(clusters) != 2 {
		for _, c := range clusters {
			t.Logf("cluster %s: %v", c.ClusterID, c.MemberArticleIDs)
		}
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}

	if clusters[0].ClusterID != "story-art-a" {
		t.Errorf("first cluster ID = %q, want story-art-a", clusters[0].ClusterID)
	}
	if len(clusters[0].MemberArticleIDs) != 2 {
		t.Errorf("climate cluster members = %v, want art-a and art-b", clusters[0].MemberArticleIDs)
	}
	if len(clusters[1].MemberArticleIDs) != 1 || clusters[1].MemberArticleIDs[0] != "art-c" {
		t.Errorf("stadium cluster members = %v, want [art-c]", clusters[1].MemberArticleIDs)
	}
	if clusters[0].Label == "" {
		t.Error("clusters should carry labels")
	}

	// Partition persisted wholesale and archived once.
	stored, err := mem.ListClusters(ctx)
	if err != nil {
		t.Fatalf("ListClusters failed: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("stored %d clusters, want 2", len(stored))
	}
	if archiver.clusterRuns != 1 {
		t.Errorf("archived %d cluster runs, want 1", archiver.clusterRuns)
	}

	// Reclustering an unchanged corpus reproduces identical cluster IDs.
	rerun, err := p.Recluster(ctx)
	if err != nil {
		t.Fatalf("second Recluster failed: %v", err)
	}
	if len(rerun) != len(clusters) {
		t.Fatalf("rerun produced %d clusters, want %d", len(rerun), len(clusters))
	}
	for i := range rerun {
		if rerun[i].ClusterID != clusters[i].ClusterID {
			t.Errorf("cluster %d ID changed on rerun: %q vs %q", i, rerun[i].ClusterID, clusters[i].ClusterID)
		}
	}
}

func TestReclusterEmptyStore(t *testing.T) {
	p, _, _, _ := newTestPipeline(t)

	clusters, err := p.Recluster(context.Background())
	if err != nil {
		t.Fatalf("Recluster failed: %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("got %d clusters from an empty store, want 0", len(clusters))
	}
}
