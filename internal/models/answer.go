package models

import "time"

// Query represents one user request entering the pipeline. It is created at
// the front-end adapter boundary and discarded when the pipeline completes.
type Query struct {
	Text           string    `json:"text"`
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`
}

// RetrievedChunk is one unit of context returned by the retrieval service.
// RelevanceScore semantics are service-specific (distance or similarity);
// scores are comparable within a single query and determine the retained
// top-K ordering.
type RetrievedChunk struct {
	Content        string  `json:"content"`
	SourceDocument string  `json:"source_document"`
	RelevanceScore float64 `json:"relevance_score"`
}

// GeneratedAnswer is the raw output of the generation service.
type GeneratedAnswer struct {
	Text      string   `json:"text"`
	Citations []string `json:"citations,omitempty"`
}

// Answer is the canonical orchestrator output, independent of any front-end.
// Sources are deduplicated document names in first-seen relevance order.
// Degraded is true when generation failed and the retrieval-only fallback
// was used.
type Answer struct {
	Text       string   `json:"text"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"`
	ElapsedMs  int64    `json:"elapsed_ms"`
	Degraded   bool     `json:"degraded"`
}
