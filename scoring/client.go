package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/anujpatel512/bias-lens/types"
)

// ReasoningClient abstracts the external reasoning service: it takes a text
// prompt and returns free-form text expected to parse as the assessment
// schema. No other contract is assumed about the service.
type ReasoningClient interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	ModelVersion() string
}

// OpenAIChatConfig configures the OpenAI-compatible chat completions client.
type OpenAIChatConfig struct {
	Endpoint string // default https://api.openai.com/v1/chat/completions
	Model    string // default gpt-4o-mini
	APIKey   string
	Timeout  time.Duration // per-call upper bound, default 60s
}

// OpenAIChat implements ReasoningClient against OpenAI-compatible chat
// completions APIs.
type OpenAIChat struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ReasoningClient = (*OpenAIChat)(nil)

// NewOpenAIChat builds a client from configuration.
func NewOpenAIChat(cfg OpenAIChatConfig) (*OpenAIChat, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &OpenAIChat{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

func (c *OpenAIChat) ModelVersion() string { return c.model }

// Complete posts the prompt as a single-turn chat and returns the raw
// assistant message. Transport and rate-limit problems come back as
// *TransportError so the scorer can apply backoff.
func (c *OpenAIChat) Complete(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
		// Low temperature for consistent scoring across reruns.
		"temperature": 0.1,
		"max_tokens":  2000,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(payload))),
		}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &TransportError{Err: errors.New("response contained no choices")}
	}

	return parsed.Choices[0].Message.Content, nil
}

// ScorerConfig tunes the retry discipline around the reasoning client.
type ScorerConfig struct {
	// MaxAttempts bounds transport retries (default 3).
	MaxAttempts int
	// BackoffBase is the first retry delay; doubled per attempt (default 1s).
	BackoffBase time.Duration
}

// Scorer turns a rendered prompt into a validated BiasAssessment. It is the
// only component permitted direct contact with the reasoning service, so
// quota policies live here.
type Scorer struct {
	client      ReasoningClient
	maxAttempts int
	backoffBase time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewScorer wraps a reasoning client with retry and validation policy.
func NewScorer(client ReasoningClient, cfg ScorerConfig) *Scorer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	return &Scorer{
		client:      client,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Score sends the prompt, validates the reply against the assessment schema,
// and returns the structured assessment. Transport failures and rate limits
// retry with exponential backoff up to the attempt ceiling; a schema failure
// retries exactly once with a stricter re-prompt. Exhausted retries surface
// as *ScoringFailedError and the caller records the assessment as absent.
func (s *Scorer) Score(ctx context.Context, articleID, prompt string) (*types.BiasAssessment, error) {
	userPrompt := prompt
	schemaRetried := false
	backoff := s.backoffBase

	for attempt := 1; ; attempt++ {
		reply, err := s.client.Complete(ctx, systemPrompt, userPrompt)
		if err == nil {
			assessment, perr := parseAssessment(reply)
			if perr == nil {
				assessment.ArticleID = articleID
				assessment.ComputedAt = s.now().UTC()
				assessment.ModelVersion = s.client.ModelVersion()
				return assessment, nil
			}

			var schemaErr *SchemaError
			if errors.As(perr, &schemaErr) && !schemaRetried {
				// One corrective re-prompt; a second malformed reply ends it.
				log.Printf("Schema validation failed for article %s, re-prompting: %s", articleID, schemaErr.Reason)
				schemaRetried = true
				userPrompt = prompt + strictReprompt
				continue
			}
			return nil, &ScoringFailedError{ArticleID: articleID, Reason: perr.Error(), Err: perr}
		}

		var transportErr *TransportError
		if !errors.As(err, &transportErr) {
			return nil, &ScoringFailedError{ArticleID: articleID, Reason: err.Error(), Err: err}
		}
		if attempt >= s.maxAttempts {
			return nil, &ScoringFailedError{
				ArticleID: articleID,
				Reason:    fmt.Sprintf("transport failure after %d attempts: %v", attempt, transportErr),
				Err:       transportErr,
			}
		}

		// Rate-limit responses wait one extra step before the next attempt.
		wait := backoff
		if transportErr.RateLimited() {
			wait = backoff * 2
		}
		log.Printf("Transport error scoring article %s (attempt %d/%d), retrying in %s: %v",
			articleID, attempt, s.maxAttempts, wait, transportErr)
		if err := s.sleep(ctx, wait); err != nil {
			return nil, &ScoringFailedError{ArticleID: articleID, Reason: "canceled during backoff", Err: err}
		}
		backoff *= 2
	}
}

// sleepContext waits for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
