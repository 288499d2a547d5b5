package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Article represents a single normalized article record. Articles are
// immutable after ingestion; derived data (assessments, representations,
// cluster assignments) is attached through the store, never written back
// into these fields.
type Article struct {
	ID                 string    `json:"id"`
	SourceOutlet       string    `json:"source_outlet"`
	Title              string    `json:"title"`
	Content            string    `json:"content"`
	URL                string    `json:"url,omitempty"`
	Author             string    `json:"author,omitempty"`
	PublishedAt        time.Time `json:"published_at"`
	FetchedAt          time.Time `json:"fetched_at"`
	ContentFingerprint string    `json:"content_fingerprint"`
}

// GenerateID creates a stable article ID from a URL.
func GenerateID(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:])[:16]
}

// Fingerprint returns the deterministic content fingerprint for a
// (title, content) pair: sha256 over the normalized text. Identical text
// always yields the same fingerprint; it is the cache and idempotency key.
func Fingerprint(title, content string) string {
	combined := normalizeText(title) + "\n" + normalizeText(content)
	hash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(hash[:])
}

// normalizeText lowercases and collapses whitespace so that incidental
// formatting differences do not produce distinct fingerprints.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
