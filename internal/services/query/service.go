// Package query implements the orchestrator composing the rate limiter,
// preprocessor, retrieval client, and answer generator into one
// request/response cycle.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/askdoc/askdoc/internal/common"
	"github.com/askdoc/askdoc/internal/interfaces"
	"github.com/askdoc/askdoc/internal/models"
	"github.com/askdoc/askdoc/internal/services/preprocess"
)

// noResultsText is the canonical answer when no chunks met the relevance
// threshold. A successful-but-empty result, not an error.
const noResultsText = "I couldn't find relevant information to answer your question. Please try rephrasing your query or ask about a different topic."

// degradedPreamble introduces the retrieval-only fallback answer used when
// generation fails.
const degradedPreamble = "I couldn't generate a summarized answer right now, but here is the most relevant information I found:"

// Service orchestrates one request/response cycle. Each request runs its
// pipeline sequentially; concurrency exists only across requests, and the
// only shared mutable state is the rate limiter's per-user counters.
type Service struct {
	limiter    interfaces.RateLimiter
	cleaner    *preprocess.Cleaner
	retrieval  interfaces.RetrievalService
	generation interfaces.GenerationService
	audit      interfaces.AuditStorage // nil when auditing is disabled
	logger     arbor.ILogger

	scoreKind        string
	defaultThreshold float64
	degradedScale    float64
	degradedTopN     int
	logQueries       bool
}

// NewService creates the query orchestrator.
func NewService(
	limiter interfaces.RateLimiter,
	cleaner *preprocess.Cleaner,
	retrieval interfaces.RetrievalService,
	generation interfaces.GenerationService,
	audit interfaces.AuditStorage,
	config *common.Config,
	logger arbor.ILogger,
) *Service {
	return &Service{
		limiter:          limiter,
		cleaner:          cleaner,
		retrieval:        retrieval,
		generation:       generation,
		audit:            audit,
		logger:           logger,
		scoreKind:        config.Retrieval.ScoreKind,
		defaultThreshold: config.Retrieval.DistanceThreshold,
		degradedScale:    config.Query.DegradedConfidenceScale,
		degradedTopN:     config.Query.DegradedTopN,
		logQueries:       config.Audit.LogQueries,
	}
}

// Answer runs the full pipeline for one request: rate check, clean,
// retrieve, generate, assemble. Generation failures degrade to a
// retrieval-only answer; retrieval failures are the one unrecoverable
// error. ElapsedMs is set on every successful return.
func (s *Service) Answer(ctx context.Context, req *interfaces.AnswerRequest) (*models.Answer, error) {
	start := time.Now()

	decision := s.limiter.Check(req.UserID)
	if !decision.Allowed {
		s.logger.Debug().
			Str("user_id", req.UserID).
			Str("channel", req.Channel).
			Dur("retry_after", decision.RetryAfter).
			Msg("Request denied by rate limiter")
		s.record(ctx, req, nil, 0, models.AuditOutcomeRateLimited, start)
		return nil, &models.RateLimitError{RetryAfter: decision.RetryAfter}
	}

	cleaned, truncated := s.cleaner.Clean(req.Query)
	if cleaned == "" {
		s.record(ctx, req, nil, 0, models.AuditOutcomeEmptyQuery, start)
		return nil, models.ErrEmptyQuery
	}
	if truncated {
		s.logger.Info().
			Str("user_id", req.UserID).
			Int("raw_length", len(req.Query)).
			Int("cleaned_length", len(cleaned)).
			Msg("Query truncated during preprocessing")
	}

	chunks, err := s.retrieval.Search(ctx, cleaned, req.MaxResults, req.RelevanceThreshold)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", req.UserID).
			Str("channel", req.Channel).
			Msg("Retrieval failed")
		s.record(ctx, req, nil, 0, models.AuditOutcomeFailed, start)
		return nil, err
	}

	if len(chunks) == 0 {
		answer := &models.Answer{
			Text:       noResultsText,
			Sources:    []string{},
			Confidence: 0,
			ElapsedMs:  time.Since(start).Milliseconds(),
			Degraded:   false,
		}
		s.logger.Info().
			Str("user_id", req.UserID).
			Dur("elapsed", time.Since(start)).
			Msg("No chunks met the relevance threshold")
		s.record(ctx, req, answer, 0, models.AuditOutcomeNoResults, start)
		return answer, nil
	}

	threshold := req.RelevanceThreshold
	if threshold <= 0 {
		threshold = s.defaultThreshold
	}
	confidence := scoreConfidence(s.scoreKind, chunks[0].RelevanceScore, threshold)
	sources := dedupSources(chunks)

	answer := &models.Answer{Sources: sources}
	outcome := models.AuditOutcomeAnswered

	generated, err := s.generation.Generate(ctx, cleaned, chunks)
	if err != nil {
		// Generation failures are recoverable: fall back to a
		// retrieval-only answer with confidence capped below the
		// non-degraded range
		s.logger.Warn().
			Err(err).
			Str("user_id", req.UserID).
			Int("chunks", len(chunks)).
			Msg("Generation failed, returning retrieval-only answer")
		answer.Text = s.degradedText(chunks)
		answer.Confidence = confidence * s.degradedScale
		answer.Degraded = true
		outcome = models.AuditOutcomeDegraded
	} else {
		answer.Text = generated.Text
		answer.Confidence = confidence
	}

	answer.ElapsedMs = time.Since(start).Milliseconds()

	s.logger.Info().
		Str("user_id", req.UserID).
		Str("channel", req.Channel).
		Int("chunks", len(chunks)).
		Int("sources", len(sources)).
		Str("confidence", fmt.Sprintf("%.2f", answer.Confidence)).
		Str("degraded", fmt.Sprintf("%v", answer.Degraded)).
		Int64("elapsed_ms", answer.ElapsedMs).
		Msg("Query answered")

	s.record(ctx, req, answer, len(chunks), outcome, start)
	return answer, nil
}

// degradedText assembles the retrieval-only fallback from the top N chunk
// contents, in relevance order.
func (s *Service) degradedText(chunks []models.RetrievedChunk) string {
	topN := s.degradedTopN
	if topN <= 0 || topN > len(chunks) {
		topN = len(chunks)
	}

	parts := []string{degradedPreamble}
	for _, chunk := range chunks[:topN] {
		parts = append(parts, fmt.Sprintf("From %s:\n%s", chunk.SourceDocument, chunk.Content))
	}
	return strings.Join(parts, "\n\n")
}

// dedupSources returns deduplicated document names in first-seen relevance
// order.
func dedupSources(chunks []models.RetrievedChunk) []string {
	seen := make(map[string]bool, len(chunks))
	sources := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.SourceDocument == "" || seen[chunk.SourceDocument] {
			continue
		}
		seen[chunk.SourceDocument] = true
		sources = append(sources, chunk.SourceDocument)
	}
	return sources
}

// record writes an audit entry. Audit failures are logged, never fatal.
func (s *Service) record(ctx context.Context, req *interfaces.AnswerRequest, answer *models.Answer, chunkCount int, outcome string, start time.Time) {
	if s.audit == nil {
		return
	}

	rec := &models.AuditRecord{
		Timestamp:  start,
		Channel:    req.Channel,
		UserID:     req.UserID,
		QueryChars: len(req.Query),
		ChunkCount: chunkCount,
		Outcome:    outcome,
		ElapsedMs:  time.Since(start).Milliseconds(),
	}
	if s.logQueries {
		rec.QueryText = req.Query
	}
	if answer != nil {
		rec.Confidence = answer.Confidence
		rec.Degraded = answer.Degraded
	}

	if err := s.audit.Record(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write audit record")
	}
}
