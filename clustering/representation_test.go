package clustering

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/anujpatel512/bias-lens/types"
)

type fakeProvider struct {
	vectors [][]float32
	err     error
	texts   []string
}

func (f *fakeProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.texts = texts
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func (f *fakeProvider) ModelName() string { return "fake/model-v1" }

func TestRepresentCarriesMethodAndOrder(t *testing.T) {
	provider := &fakeProvider{vectors: [][]float32{{1, 0}, {0, 1}}}
	builder := NewBuilder(provider)

	articles := []*types.Article{
		{ID: "art-1", Title: "First Story!", Content: "Some content about the first story."},
		{ID: "art-2", Title: "Second Story", Content: "Different content entirely."},
	}

	reps, err := builder.Represent(context.Background(), articles)
	if err != nil {
		t.Fatalf("Represent failed: %v", err)
	}
	if len(reps) != 2 {
		t.Fatalf("got %d representations, want 2", len(reps))
	}
	for i, rep := range reps {
		if rep.ArticleID != articles[i].ID {
			t.Errorf("representation %d is for %s, want %s", i, rep.ArticleID, articles[i].ID)
		}
		if rep.Method != "fake/model-v1" {
			t.Errorf("method = %q, want fake/model-v1", rep.Method)
		}
		if rep.BuiltAt.IsZero() {
			t.Error("BuiltAt not set")
		}
	}

	// The embedded text is normalized: lowercased, noise stripped.
	if len(provider.texts) != 2 {
		t.Fatalf("provider saw %d texts, want 2", len(provider.texts))
	}
	if provider.texts[0] != strings.ToLower(provider.texts[0]) {
		t.Errorf("embedded text not lowercased: %q", provider.texts[0])
	}
	if !strings.Contains(provider.texts[0], "first story") {
		t.Errorf("embedded text missing title: %q", provider.texts[0])
	}
}

func TestRepresentEmptyInput(t *testing.T) {
	reps, err := NewBuilder(&fakeProvider{}).Represent(context.Background(), nil)
	if err != nil {
		t.Fatalf("Represent failed: %v", err)
	}
	if len(reps) != 0 {
		t.Errorf("got %d representations for empty input", len(reps))
	}
}

func TestRepresentCountMismatch(t *testing.T) {
	provider := &fakeProvider{vectors: [][]float32{{1, 0}}} // one vector for two articles
	builder := NewBuilder(provider)

	articles := []*types.Article{
		{ID: "art-1", Title: "One", Content: "content"},
		{ID: "art-2", Title: "Two", Content: "content"},
	}
	if _, err := builder.Represent(context.Background(), articles); err == nil {
		t.Fatal("expected error on count mismatch")
	}
}

func TestRepresentPropagatesProviderError(t *testing.T) {
	fail := errors.New("embeddings service down")
	builder := NewBuilder(&fakeProvider{err: fail})

	_, err := builder.Represent(context.Background(), []*types.Article{{ID: "art-1", Title: "T", Content: "c"}})
	if !errors.Is(err, fail) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestRepresentationTextTruncatesPreview(t *testing.T) {
	article := &types.Article{
		Title:   "Long Read",
		Content: strings.Repeat("a", 5000),
	}
	text := representationText(article)
	if len(text) > 1100 {
		t.Errorf("representation text length %d, want content preview capped near 1000", len(text))
	}
}

func TestRepresentationTextPreviewCutKeepsRuneBoundaries(t *testing.T) {
	// Three-byte runes mean the 1000-byte preview cap lands mid-rune unless
	// the cut backs off to a rune boundary.
	article := &types.Article{
		Title:   "Foreign Desk",
		Content: strings.Repeat("€", 500),
	}
	text := representationText(article)
	if !utf8.ValidString(text) {
		t.Errorf("representation text is not valid UTF-8: %q", text)
	}
}

func TestLexicalEmbeddingsDeterministicAndNormalized(t *testing.T) {
	provider := NewLexicalEmbeddings(64)
	ctx := context.Background()

	texts := []string{"senate passes climate bill", "senate passes climate bill"}
	vectors, err := provider.EmbedTexts(ctx, texts)
	if err != nil {
		t.Fatalf("EmbedTexts failed: %v", err)
	}

	if sim := CosineSimilarity(vectors[0], vectors[1]); math.Abs(float64(sim)-1) > 1e-6 {
		t.Errorf("identical texts similarity = %f, want 1", sim)
	}

	var norm float64
	for _, v := range vectors[0] {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("vector norm = %f, want 1", norm)
	}
}

func TestLexicalEmbeddingsSeparatesTopics(t *testing.T) {
	provider := NewLexicalEmbeddings(256)
	ctx := context.Background()

	vectors, err := provider.EmbedTexts(ctx, []string{
		"senate passes sweeping climate bill after marathon session",
		"climate bill clears senate as critics warn of energy costs",
		"city council approves waterfront stadium deal despite protests",
	})
	if err != nil {
		t.Fatalf("EmbedTexts failed: %v", err)
	}

	related := CosineSimilarity(vectors[0], vectors[1])
	unrelated := CosineSimilarity(vectors[0], vectors[2])
	if related <= unrelated {
		t.Errorf("related similarity %f not above unrelated %f", related, unrelated)
	}
}
