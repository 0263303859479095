package models

import "time"

// AuditRecord captures one completed pipeline run for operational review.
// Answers themselves are not persisted; this stores outcome metadata only,
// plus the query text when audit.log_queries is enabled.
type AuditRecord struct {
	ID         uint64    `badgerhold:"key" json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Channel    string    `json:"channel"`
	UserID     string    `json:"user_id"`
	QueryChars int       `json:"query_chars"`
	QueryText  string    `json:"query_text,omitempty"`
	ChunkCount int       `json:"chunk_count"`
	Confidence float64   `json:"confidence"`
	Degraded   bool      `json:"degraded"`
	Outcome    string    `json:"outcome"`
	ElapsedMs  int64     `json:"elapsed_ms"`
}

// Audit outcome values.
const (
	AuditOutcomeAnswered    = "answered"
	AuditOutcomeNoResults   = "no_results"
	AuditOutcomeDegraded    = "degraded"
	AuditOutcomeRateLimited = "rate_limited"
	AuditOutcomeEmptyQuery  = "empty_query"
	AuditOutcomeFailed      = "failed"
)
