// Package retrieval provides a client for the external chunk-retrieval
// service.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/askdoc/askdoc/internal/common"
	"github.com/askdoc/askdoc/internal/models"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultRateLimit is the default client-side rate limit (requests per
	// second) applied before calls leave the process.
	DefaultRateLimit = 5
)

// Client is a retrieval service API client. The service pre-filters by
// relevance threshold and returns chunks ordered best-first; the client
// performs no re-ranking.
type Client struct {
	endpoint           string
	apiKey             string
	corpusCandidates   []string
	maxResults         int
	relevanceThreshold float64
	retryBackoff       time.Duration
	timeout            time.Duration
	httpClient         *http.Client
	limiter            *rate.Limiter
	logger             arbor.ILogger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets a custom client-side rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a retrieval client from configuration.
func NewClient(cfg *common.RetrievalConfig, logger arbor.ILogger, opts ...ClientOption) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("retrieval endpoint is required")
	}
	if cfg.CorpusID == "" {
		return nil, fmt.Errorf("retrieval corpus_id is required")
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid retrieval timeout %q: %w", cfg.Timeout, err)
	}
	retryBackoff, err := time.ParseDuration(cfg.RetryBackoff)
	if err != nil {
		return nil, fmt.Errorf("invalid retrieval retry_backoff %q: %w", cfg.RetryBackoff, err)
	}

	rateLimit := cfg.RateLimitPerSecond
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}

	c := &Client{
		endpoint:           strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:             cfg.APIKey,
		corpusCandidates:   corpusCandidates(cfg.CorpusID),
		maxResults:         cfg.MaxResults,
		relevanceThreshold: cfg.DistanceThreshold,
		retryBackoff:       retryBackoff,
		timeout:            timeout,
		httpClient:         &http.Client{Timeout: timeout},
		limiter:            rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		logger:             logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	logger.Debug().
		Str("endpoint", c.endpoint).
		Strs("corpus_candidates", c.corpusCandidates).
		Int("max_results", c.maxResults).
		Str("relevance_threshold", fmt.Sprintf("%v", c.relevanceThreshold)).
		Msg("Retrieval client initialized")

	return c, nil
}

// corpusCandidates builds the ordered identifier forms to try. The service
// accepts either a bare numeric ID or a fully-qualified resource path; the
// configured form goes first and the alternate form is the single fallback.
func corpusCandidates(corpusID string) []string {
	if strings.Contains(corpusID, "/") {
		return []string{corpusID, path.Base(corpusID)}
	}
	return []string{corpusID, "corpora/" + corpusID}
}

// APIError represents an error response from the retrieval service.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("retrieval API error: %s (status %d, %s)", e.Message, e.StatusCode, e.Status)
}

// notFound reports whether the error is a "not found"-class response that
// should trigger the alternate corpus identifier form.
func (e *APIError) notFound() bool {
	return e.StatusCode == http.StatusNotFound || e.Status == "NOT_FOUND"
}

// transient reports whether the error is worth one retry.
func (e *APIError) transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// retrieveRequest is the wire shape of a retrieval call.
type retrieveRequest struct {
	Query              retrieveQuery `json:"query"`
	RelevanceThreshold float64       `json:"relevance_threshold"`
}

type retrieveQuery struct {
	Text string `json:"text"`
	TopK int    `json:"similarity_top_k"`
}

// retrieveResponse is the wire shape of the service's reply. The score
// field name varies between deployments; both forms are accepted and
// normalized by mapChunk.
type retrieveResponse struct {
	Contexts []retrievedContext `json:"contexts"`
	Error    *responseError     `json:"error,omitempty"`
}

type retrievedContext struct {
	Text              string   `json:"text"`
	SourceURI         string   `json:"source_uri"`
	SourceDisplayName string   `json:"source_display_name"`
	Score             *float64 `json:"score,omitempty"`
	Distance          *float64 `json:"distance,omitempty"`
}

type responseError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Search implements interfaces.RetrievalService. Zero maxResults or
// relevanceThreshold fall back to configured defaults.
func (c *Client) Search(ctx context.Context, queryText string, maxResults int, relevanceThreshold float64) ([]models.RetrievedChunk, error) {
	if maxResults <= 0 {
		maxResults = c.maxResults
	}
	if relevanceThreshold <= 0 {
		relevanceThreshold = c.relevanceThreshold
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.classify(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	var chunks []models.RetrievedChunk
	var lastErr error
	for i, corpus := range c.corpusCandidates {
		chunks, lastErr = c.retrieveWithRetry(ctx, corpus, queryText, maxResults, relevanceThreshold)
		if lastErr == nil {
			break
		}

		var apiErr *APIError
		if errors.As(lastErr, &apiErr) && apiErr.notFound() && i == 0 {
			// Alternate identifier form, tried at most once per call
			c.logger.Debug().
				Str("corpus", corpus).
				Str("fallback", c.corpusCandidates[1]).
				Msg("Corpus not found, trying alternate identifier form")
			continue
		}
		break
	}

	if lastErr != nil {
		return nil, c.classify(lastErr)
	}

	c.logger.Debug().
		Int("chunks", len(chunks)).
		Int("total_chars", totalChars(chunks)).
		Dur("duration", time.Since(start)).
		Msg("Retrieval complete")

	return chunks, nil
}

// retrieveWithRetry performs one retrieval call with a single fixed-backoff
// retry on transient failures. Auth and malformed-request errors fail fast.
func (c *Client) retrieveWithRetry(ctx context.Context, corpus, queryText string, maxResults int, relevanceThreshold float64) ([]models.RetrievedChunk, error) {
	chunks, err := c.retrieve(ctx, corpus, queryText, maxResults, relevanceThreshold)
	if err == nil || !isTransient(err) {
		return chunks, err
	}

	c.logger.Warn().Err(err).Dur("backoff", c.retryBackoff).Msg("Transient retrieval failure, retrying once")

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.retryBackoff):
	}

	return c.retrieve(ctx, corpus, queryText, maxResults, relevanceThreshold)
}

// retrieve performs a single retrieval HTTP call.
func (c *Client) retrieve(ctx context.Context, corpus, queryText string, maxResults int, relevanceThreshold float64) ([]models.RetrievedChunk, error) {
	body, err := json.Marshal(retrieveRequest{
		Query:              retrieveQuery{Text: queryText, TopK: maxResults},
		RelevanceThreshold: relevanceThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal retrieval request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/%s:retrieveContexts", c.endpoint, corpus)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create retrieval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read retrieval response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var decoded retrieveResponse
		if json.Unmarshal(data, &decoded) == nil && decoded.Error != nil {
			apiErr.Status = decoded.Error.Status
			apiErr.Message = decoded.Error.Message
		}
		return nil, apiErr
	}

	var decoded retrieveResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode retrieval response: %w", err)
	}

	chunks := make([]models.RetrievedChunk, 0, len(decoded.Contexts))
	for _, rc := range decoded.Contexts {
		chunks = append(chunks, mapChunk(rc))
	}
	return chunks, nil
}

// mapChunk converts the raw service payload into the typed RetrievedChunk.
// The raw shape never escapes this package.
func mapChunk(rc retrievedContext) models.RetrievedChunk {
	name := rc.SourceDisplayName
	if name == "" {
		name = rc.SourceURI
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
	}
	if name == "" {
		name = "unknown"
	}

	var score float64
	switch {
	case rc.Distance != nil:
		score = *rc.Distance
	case rc.Score != nil:
		score = *rc.Score
	}

	return models.RetrievedChunk{
		Content:        rc.Text,
		SourceDocument: name,
		RelevanceScore: score,
	}
}

// HealthCheck verifies the retrieval service answers a minimal query.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Search(ctx, "health check", 1, 0)
	if err != nil {
		return fmt.Errorf("retrieval service unhealthy: %w", err)
	}
	return nil
}

// classify wraps a raw failure into the models error taxonomy.
func (c *Client) classify(err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if !timeout && errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	return &models.RetrievalError{Timeout: timeout, Err: err}
}

// isTransient reports whether one retry with fixed backoff is warranted.
// Authentication and malformed-request failures are permanent.
func isTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.transient()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	// Remaining failures are network-level (connection refused, reset)
	return true
}

func totalChars(chunks []models.RetrievedChunk) int {
	total := 0
	for _, chunk := range chunks {
		total += len(chunk.Content)
	}
	return total
}
