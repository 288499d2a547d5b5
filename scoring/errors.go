package scoring

import (
	"errors"
	"fmt"
)

// ErrContentTooShort is returned by the prompt builder when an article's
// content is empty or below the configured minimum. Scoring a near-empty
// article wastes a paid call; the error is surfaced immediately, not retried.
var ErrContentTooShort = errors.New("article content too short to score")

// ErrBatchTooLarge is returned by ScoreBatch before any external call when
// the caller exceeds the configured batch ceiling.
var ErrBatchTooLarge = errors.New("batch exceeds configured article ceiling")

// SchemaError indicates the reasoning service returned a payload that does
// not satisfy the assessment schema. Retried at most once with a stricter
// re-prompt before escalating.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "schema validation failed: " + e.Reason
}

// TransportError indicates a network failure, timeout, or rate-limit signal
// from the reasoning service. Retried with exponential backoff.
type TransportError struct {
	StatusCode int // 0 when the request never completed
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("reasoning service transport error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("reasoning service transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RateLimited reports whether the error carries a rate-limit status.
func (e *TransportError) RateLimited() bool { return e.StatusCode == 429 }

// ScoringFailedError is the terminal per-article failure after all retries
// are exhausted. It is collected into the batch result map, never raised as
// a batch-level error.
type ScoringFailedError struct {
	ArticleID string
	Reason    string
	Err       error
}

func (e *ScoringFailedError) Error() string {
	return fmt.Sprintf("scoring failed for article %s: %s", e.ArticleID, e.Reason)
}

func (e *ScoringFailedError) Unwrap() error { return e.Err }
