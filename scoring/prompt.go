package scoring

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/anujpatel512/bias-lens/types"
)

const (
	// DefaultMinContentLength is the floor below which an article is not
	// worth a paid scoring call.
	DefaultMinContentLength = 200

	// maxPromptChars bounds the article text included in a prompt.
	// Rough estimation: 1 token ~= 4 characters, targeting ~4000 tokens.
	maxPromptChars = 16000
)

const systemPrompt = "You are an expert media bias analyst. Return only valid JSON."

const promptTemplate = `You are an expert media bias analyst. Analyze the article for bias across 5 dimensions:

%s

Score each dimension 1-5 (1=minimal bias, 5=extreme bias).

Return ONLY valid JSON:
{
  "scores": {"framing": 1-5, "omission": 1-5, "tone": 1-5, "source_selection": 1-5, "word_choice": 1-5},
  "justifications": {"framing": "explanation", "omission": "explanation", "tone": "explanation", "source_selection": "explanation", "word_choice": "explanation"},
  "bias_phrases": [{"text": "phrase", "dimension": "dimension_name"}],
  "notable_claims": [{"span": "text", "claim": "description"}]
}

Title: %s
Content: %s`

// strictReprompt is appended when the first reply failed schema validation.
const strictReprompt = "\n\nYour previous response was not valid JSON matching the required schema. Respond again with ONLY the JSON object, no markdown fences, no commentary."

// PromptBuilder renders the bias-analysis prompt for an article. Pure: the
// same (title, content) always yields the same prompt, and no I/O happens.
type PromptBuilder struct {
	minContentLength int
}

// NewPromptBuilder returns a builder enforcing the given minimum content
// length (0 selects the default).
func NewPromptBuilder(minContentLength int) *PromptBuilder {
	if minContentLength <= 0 {
		minContentLength = DefaultMinContentLength
	}
	return &PromptBuilder{minContentLength: minContentLength}
}

// Build renders the prompt, truncating content at a sentence boundary to
// stay within the token budget. Returns ErrContentTooShort for articles
// below the minimum length.
func (b *PromptBuilder) Build(article *types.Article) (string, error) {
	content := strings.TrimSpace(article.Content)
	if len(content) < b.minContentLength {
		return "", fmt.Errorf("article %s has %d characters (minimum %d): %w",
			article.ID, len(content), b.minContentLength, ErrContentTooShort)
	}

	return fmt.Sprintf(promptTemplate, dimensionLines, article.Title, truncateAtSentence(content, maxPromptChars)), nil
}

// dimensionLines is the numbered rubric list embedded in every prompt,
// rendered from types.DimensionRubric in canonical dimension order.
var dimensionLines = renderDimensionLines()

func renderDimensionLines() string {
	lines := make([]string, len(types.Dimensions))
	for i, dim := range types.Dimensions {
		lines[i] = fmt.Sprintf("%d. %s: %s", i+1, dimensionDisplayName(dim), types.DimensionRubric[dim])
	}
	return strings.Join(lines, "\n")
}

func dimensionDisplayName(dim types.Dimension) string {
	words := strings.Split(string(dim), "_")
	for i, word := range words {
		first, size := utf8.DecodeRuneInString(word)
		words[i] = string(unicode.ToUpper(first)) + word[size:]
	}
	return strings.Join(words, " ")
}

// truncateAtSentence cuts text to maxChars, preferring to end at the last
// sentence terminator when one lands in the final fifth of the budget. The
// cut never lands mid-rune.
func truncateAtSentence(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}

	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	truncated := text[:cut]
	end := strings.LastIndexAny(truncated, ".!?")
	if end > maxChars*4/5 {
		return truncated[:end+1]
	}
	return truncated + "..."
}
