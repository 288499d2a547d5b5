package types

import "time"

// Dimension is one of the five fixed bias categories, each scored 1-5.
type Dimension string

const (
	DimensionFraming         Dimension = "framing"
	DimensionOmission        Dimension = "omission"
	DimensionTone            Dimension = "tone"
	DimensionSourceSelection Dimension = "source_selection"
	DimensionWordChoice      Dimension = "word_choice"
)

// Dimensions lists every bias dimension in its canonical order.
var Dimensions = []Dimension{
	DimensionFraming,
	DimensionOmission,
	DimensionTone,
	DimensionSourceSelection,
	DimensionWordChoice,
}

// DimensionRubric describes what each dimension measures; the prompt builder
// embeds these descriptions verbatim.
var DimensionRubric = map[Dimension]string{
	DimensionFraming:         "How the story is presented - angle, causal attributions, villains/heroes",
	DimensionOmission:        "Missing key facts, perspectives, or context",
	DimensionTone:            "Emotive vs neutral language, sensationalism",
	DimensionSourceSelection: "Which voices are quoted/relied on, diversity of perspectives",
	DimensionWordChoice:      "Loaded terms, euphemisms, or biased language",
}

// ValidDimension reports whether s names one of the five dimensions.
func ValidDimension(s string) bool {
	_, ok := DimensionRubric[Dimension(s)]
	return ok
}

// BiasPhrase is a phrase the model flagged as carrying bias, tagged with the
// dimension it exhibits. Text is expected, but not guaranteed, to be a
// substring of the article content.
type BiasPhrase struct {
	Text      string    `json:"text"`
	Dimension Dimension `json:"dimension"`
}

// NotableClaim is an advisory claim the model (or local extraction) surfaced.
// Claims are never verified as fact.
type NotableClaim struct {
	Span   string      `json:"span"`
	Claim  string      `json:"claim"`
	Source *SourceLink `json:"source,omitempty"`
}

// SourceLink points toward a likely primary source for a claim. Heuristic
// and advisory; Confidence is a rough signal, not a probability.
type SourceLink struct {
	URL        string  `json:"url,omitempty"`
	Confidence float64 `json:"confidence"`
	SourceType string  `json:"source_type"`
}

// BiasAssessment is the structured result of scoring one article. Created
// once per (article, model version); immutable; superseded rather than
// mutated on re-score.
type BiasAssessment struct {
	ArticleID      string               `json:"article_id"`
	Scores         map[Dimension]int    `json:"scores"`
	Justifications map[Dimension]string `json:"justifications"`
	BiasPhrases    []BiasPhrase         `json:"bias_phrases"`
	NotableClaims  []NotableClaim       `json:"notable_claims"`
	ComputedAt     time.Time            `json:"computed_at"`
	ModelVersion   string               `json:"model_version"`
}

// Clone returns a deep copy. Cached assessments are handed to every caller
// sharing a fingerprint; anything that rebinds the ID, verifies phrases, or
// backfills claims works on a clone so the shared value stays untouched.
func (a *BiasAssessment) Clone() *BiasAssessment {
	if a == nil {
		return nil
	}

	cp := *a
	if a.Scores != nil {
		cp.Scores = make(map[Dimension]int, len(a.Scores))
		for dim, score := range a.Scores {
			cp.Scores[dim] = score
		}
	}
	if a.Justifications != nil {
		cp.Justifications = make(map[Dimension]string, len(a.Justifications))
		for dim, text := range a.Justifications {
			cp.Justifications[dim] = text
		}
	}
	cp.BiasPhrases = append([]BiasPhrase(nil), a.BiasPhrases...)
	if len(a.NotableClaims) > 0 {
		cp.NotableClaims = make([]NotableClaim, len(a.NotableClaims))
		copy(cp.NotableClaims, a.NotableClaims)
		for i, claim := range cp.NotableClaims {
			if claim.Source != nil {
				src := *claim.Source
				cp.NotableClaims[i].Source = &src
			}
		}
	}
	return &cp
}

// CacheEntry pairs a computed assessment with its fingerprint and storage
// time. Owned exclusively by the score cache; expiry is evaluated lazily at
// lookup time.
type CacheEntry struct {
	Fingerprint string          `json:"fingerprint"`
	Assessment  *BiasAssessment `json:"assessment"`
	StoredAt    time.Time       `json:"stored_at"`
	TTLSeconds  int             `json:"ttl_seconds"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	ttl := time.Duration(e.TTLSeconds) * time.Second
	return now.Sub(e.StoredAt) > ttl
}
