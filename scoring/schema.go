package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anujpatel512/bias-lens/types"
)

// rawAssessment mirrors the JSON shape the reasoning service is asked to
// produce. Decoded strictly: anything missing or out of range rejects the
// whole payload.
type rawAssessment struct {
	Scores         map[string]int    `json:"scores"`
	Justifications map[string]string `json:"justifications"`
	BiasPhrases    []struct {
		Text      string `json:"text"`
		Dimension string `json:"dimension"`
	} `json:"bias_phrases"`
	NotableClaims []struct {
		Span  string `json:"span"`
		Claim string `json:"claim"`
	} `json:"notable_claims"`
}

// parseAssessment validates the service reply against the assessment schema.
// Models wrap JSON in markdown fences often enough that the fences are
// stripped before decoding. Claims and phrases are best-effort and never
// cause rejection on their own; missing dimensions or out-of-range scores do.
func parseAssessment(reply string) (*types.BiasAssessment, error) {
	cleaned := stripJSONFences(reply)
	if cleaned == "" {
		return nil, &SchemaError{Reason: "empty response"}
	}

	var raw rawAssessment
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("response is not valid JSON: %v", err)}
	}

	scores := make(map[types.Dimension]int, len(types.Dimensions))
	justifications := make(map[types.Dimension]string, len(types.Dimensions))
	for _, dim := range types.Dimensions {
		score, ok := raw.Scores[string(dim)]
		if !ok {
			return nil, &SchemaError{Reason: fmt.Sprintf("missing score for dimension %q", dim)}
		}
		if score < 1 || score > 5 {
			return nil, &SchemaError{Reason: fmt.Sprintf("score %d for dimension %q outside [1,5]", score, dim)}
		}
		scores[dim] = score
		justifications[dim] = raw.Justifications[string(dim)]
	}

	assessment := &types.BiasAssessment{
		Scores:         scores,
		Justifications: justifications,
	}

	for _, p := range raw.BiasPhrases {
		if p.Text == "" || !types.ValidDimension(p.Dimension) {
			continue
		}
		assessment.BiasPhrases = append(assessment.BiasPhrases, types.BiasPhrase{
			Text:      p.Text,
			Dimension: types.Dimension(p.Dimension),
		})
	}
	for _, c := range raw.NotableClaims {
		if c.Span == "" {
			continue
		}
		assessment.NotableClaims = append(assessment.NotableClaims, types.NotableClaim{
			Span:  c.Span,
			Claim: c.Claim,
		})
	}

	return assessment, nil
}

// VerifyPhrases drops bias phrases whose text is not a substring of the
// article content. The service sometimes hallucinates phrases; the scores
// themselves are kept. Returns the number of dropped phrases. A fresh slice
// is built so the input's backing array is never written through.
func VerifyPhrases(assessment *types.BiasAssessment, content string) int {
	if len(assessment.BiasPhrases) == 0 {
		return 0
	}

	kept := make([]types.BiasPhrase, 0, len(assessment.BiasPhrases))
	dropped := 0
	for _, phrase := range assessment.BiasPhrases {
		if strings.Contains(content, phrase.Text) {
			kept = append(kept, phrase)
		} else {
			dropped++
		}
	}
	assessment.BiasPhrases = kept
	return dropped
}

// stripJSONFences removes a surrounding ```json ... ``` block if present.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
