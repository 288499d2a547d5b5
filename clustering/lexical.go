package clustering

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// defaultLexicalDims is a compromise between collision rate and vector size.
const defaultLexicalDims = 256

// LexicalEmbeddings is a deterministic, dependency-free provider: each text
// becomes an L2-normalized bag-of-tokens vector via feature hashing. It is
// the offline fallback when no embedding API is configured, and what tests
// run against. Not comparable to API embeddings; the method string keeps the
// two from ever being clustered together.
type LexicalEmbeddings struct {
	dims int
}

// NewLexicalEmbeddings creates a lexical provider with the given vector
// size (0 selects the default).
func NewLexicalEmbeddings(dims int) *LexicalEmbeddings {
	if dims <= 0 {
		dims = defaultLexicalDims
	}
	return &LexicalEmbeddings{dims: dims}
}

func (l *LexicalEmbeddings) ModelName() string {
	return fmt.Sprintf("lexical/hashing-v1-%d", l.dims)
}

func (l *LexicalEmbeddings) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = l.embed(text)
	}
	return out, nil
}

func (l *LexicalEmbeddings) embed(text string) []float32 {
	vec := make([]float32, l.dims)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(l.dims)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

func tokenize(input string) []string {
	fields := strings.Fields(strings.ToLower(input))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		cleaned := strings.Trim(field, ".,;:!?\"'()[]{}")
		if cleaned != "" {
			tokens = append(tokens, cleaned)
		}
	}
	return tokens
}
