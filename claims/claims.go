// Package claims extracts attributable claims from article text with
// lightweight pattern matching. Output is advisory only: nothing here
// verifies a claim as fact. It backfills notable_claims when the reasoning
// service returns none.
package claims

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/anujpatel512/bias-lens/types"
)

// maxClaimsPerArticle caps extraction so one quote-heavy article does not
// drown the rest.
const maxClaimsPerArticle = 10

var claimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\w+\s+said\s+[^.]*\.)`),
	regexp.MustCompile(`(?i)(\w+\s+announced\s+[^.]*\.)`),
	regexp.MustCompile(`(?i)(\w+\s+reported\s+[^.]*\.)`),
	regexp.MustCompile(`(?i)(\w+\s+found\s+[^.]*\.)`),
	regexp.MustCompile(`(?i)(\w+\s+study\s+[^.]*\.)`),
	regexp.MustCompile(`(?i)(\w+\s+research\s+[^.]*\.)`),
	regexp.MustCompile(`(?i)(\w+\s+data\s+[^.]*\.)`),
	regexp.MustCompile(`(?i)(\w+\s+statistics\s+[^.]*\.)`),
}

var reportingVerbRe = regexp.MustCompile(`(?i)\b(said|announced|reported|found|study|research|data|statistics)\b`)

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// Extract returns up to maxClaimsPerArticle notable claims found in text.
func Extract(text string) []types.NotableClaim {
	var out []types.NotableClaim
	seen := make(map[string]bool)

	for _, sentence := range sentenceSplitRe.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < 20 {
			continue
		}
		// Re-terminate so the patterns (which anchor on the period) match.
		sentence += "."

		for _, pattern := range claimPatterns {
			for _, match := range pattern.FindAllStringSubmatch(sentence, -1) {
				span := strings.TrimSpace(match[1])
				if span == "" || seen[span] {
					continue
				}
				seen[span] = true
				out = append(out, types.NotableClaim{
					Span:  span,
					Claim: summarize(span),
				})
				if len(out) == maxClaimsPerArticle {
					return out
				}
			}
		}
	}
	return out
}

// summarize strips the reporting verb and truncates to a short description,
// backing off to a rune boundary so the cut never splits a character.
func summarize(span string) string {
	s := reportingVerbRe.ReplaceAllString(span, "")
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 100 {
		cut := 97
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

// Entities pulls capitalized tokens (probable names/organizations) out of a
// span, merging adjacent capitalized words.
func Entities(span string) []string {
	skip := map[string]bool{
		"the": true, "and": true, "but": true, "for": true,
		"with": true, "this": true, "that": true,
	}

	seen := make(map[string]bool)
	words := strings.Fields(span)
	for i, word := range words {
		trimmed := strings.Trim(word, ".,;:!?\"'()")
		if len(trimmed) <= 2 || skip[strings.ToLower(trimmed)] {
			continue
		}
		if trimmed[0] < 'A' || trimmed[0] > 'Z' {
			continue
		}

		entity := trimmed
		if i > 0 {
			prev := strings.Trim(words[i-1], ".,;:!?\"'()")
			if prev != "" && prev[0] >= 'A' && prev[0] <= 'Z' && !skip[strings.ToLower(prev)] {
				entity = prev + " " + entity
			}
		}
		seen[entity] = true
	}

	out := make([]string, 0, len(seen))
	for entity := range seen {
		out = append(out, entity)
	}
	sort.Strings(out)
	return out
}

// trustedDomains are treated as primary-source candidates.
var trustedDomains = []string{
	"gov", "mil", "edu",
	"whitehouse.gov", "congress.gov", "supremecourt.gov",
	"who.int", "un.org", "europa.eu",
}

// LinkPrimarySource suggests a primary-source lead for a claim, or nil when
// nothing plausible matches. Pure heuristic; confidence is advisory.
func LinkPrimarySource(claim types.NotableClaim) *types.SourceLink {
	for _, entity := range Entities(claim.Span) {
		lower := strings.ToLower(entity)
		for _, domain := range trustedDomains {
			if strings.Contains(lower, domain) {
				return &types.SourceLink{
					URL:        "https://" + domain + "/",
					Confidence: 0.7,
					SourceType: "government",
				}
			}
		}
	}

	lower := strings.ToLower(claim.Span)
	for _, marker := range []string{"study", "research", "data", "report"} {
		if strings.Contains(lower, marker) {
			return &types.SourceLink{Confidence: 0.5, SourceType: "research"}
		}
	}
	return nil
}
