package clustering

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/anujpatel512/bias-lens/types"
)

// EmbeddingsProvider abstracts a text->embedding generator.
// Implementations return one vector per input text.
type EmbeddingsProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// Builder derives one ArticleRepresentation per article. Representations are
// deterministic given the same text and the same provider model, and carry
// the method string so incompatible mixes are detectable at cluster time.
type Builder struct {
	provider EmbeddingsProvider
	now      func() time.Time
}

// NewBuilder creates a representation builder over the given provider.
func NewBuilder(provider EmbeddingsProvider) *Builder {
	return &Builder{provider: provider, now: time.Now}
}

// Represent embeds every article and returns representations in input order.
func (b *Builder) Represent(ctx context.Context, articles []*types.Article) ([]*types.ArticleRepresentation, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	texts := make([]string, len(articles))
	for i, article := range articles {
		texts[i] = representationText(article)
	}

	vectors, err := b.provider.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed articles: %w", err)
	}
	if len(vectors) != len(articles) {
		return nil, errors.New("embedding count mismatch")
	}

	builtAt := b.now().UTC()
	method := b.provider.ModelName()
	out := make([]*types.ArticleRepresentation, len(articles))
	for i, article := range articles {
		out[i] = &types.ArticleRepresentation{
			ArticleID: article.ID,
			Vector:    vectors[i],
			Method:    method,
			BuiltAt:   builtAt,
		}
	}
	return out, nil
}

var nonTextRe = regexp.MustCompile(`[^\w\s.,!?-]`)

// representationText combines the title with a content preview and strips
// noise, mirroring what worked well for story-level similarity. The preview
// cut backs off to a rune boundary.
func representationText(article *types.Article) string {
	preview := article.Content
	if len(preview) > 1000 {
		cut := 1000
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut]
	}
	combined := article.Title + ". " + preview
	combined = nonTextRe.ReplaceAllString(combined, "")
	return strings.ToLower(strings.Join(strings.Fields(combined), " "))
}

// NewDefaultProvider picks an embeddings provider: Cohere when a key is
// present, then OpenAI, else the deterministic lexical provider so the
// pipeline works offline.
func NewDefaultProvider(cohereKey, openAIKey, preferredModel string) EmbeddingsProvider {
	if cohereKey != "" {
		model := preferredModel
		if model == "" || !strings.HasPrefix(model, "embed-") {
			model = "embed-english-v3.0"
		}
		// Force HTTP/1.1; the Cohere endpoint intermittently breaks
		// streaming HTTP/2 requests.
		httpClient := &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
				ForceAttemptHTTP2: false,
			},
		}
		client := cohereclient.NewClient(
			cohereclient.WithToken(cohereKey),
			cohereclient.WithHTTPClient(httpClient),
		)
		return &CohereEmbeddings{client: client, model: model}
	}

	if openAIKey != "" {
		model := preferredModel
		if model == "" || strings.HasPrefix(model, "embed-") {
			model = "text-embedding-3-small"
		}
		return &OpenAIEmbeddings{apiKey: openAIKey, model: model}
	}

	return NewLexicalEmbeddings(0)
}

// CohereEmbeddings implements EmbeddingsProvider using the Cohere Embed v2
// API via github.com/cohere-ai/cohere-go/v2.
type CohereEmbeddings struct {
	client *cohereclient.Client
	model  string
}

func (c *CohereEmbeddings) ModelName() string { return "cohere/" + c.model }

func (c *CohereEmbeddings) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := c.client.V2.Embed(
		ctx,
		&cohere.V2EmbedRequest{
			Texts:          texts,
			Model:          c.model,
			InputType:      cohere.EmbedInputTypeClustering,
			EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("cohere embed error: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, errors.New("cohere embed returned no float embeddings")
	}

	floats := resp.Embeddings.Float
	if len(floats) != len(texts) {
		return nil, errors.New("embedding count mismatch")
	}

	out := make([][]float32, len(floats))
	for i, vec := range floats {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}

// OpenAIEmbeddings implements EmbeddingsProvider against the OpenAI
// embeddings endpoint.
// Request: {"input": ["text1", ...], "model": "text-embedding-3-small"}
// Response: {"data": [{"embedding": [...], "index": 0}, ...]}
type OpenAIEmbeddings struct {
	apiKey   string
	model    string
	endpoint string
}

func (o *OpenAIEmbeddings) ModelName() string { return "openai/" + o.model }

func (o *OpenAIEmbeddings) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	endpoint := o.endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/embeddings"
	}

	payload := map[string]interface{}{
		"input": texts,
		"model": o.model,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("openai embeddings error: status %d: %v", resp.StatusCode, body)
	}

	var parsed struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) != len(texts) {
		return nil, errors.New("embedding count mismatch")
	}

	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}
