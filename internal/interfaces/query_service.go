package interfaces

import (
	"context"

	"github.com/askdoc/askdoc/internal/models"
)

// AnswerRequest carries one question through the pipeline. MaxResults and
// RelevanceThreshold of zero mean "use configured defaults"; front-end
// adapters may pass per-request overrides (the HTTP API exposes both).
type AnswerRequest struct {
	Query              string
	UserID             string
	ConversationID     string
	Channel            string
	MaxResults         int
	RelevanceThreshold float64
}

// QueryService orchestrates one request/response cycle: rate check, clean,
// retrieve, generate, and assembly of the canonical Answer. It owns the
// timeout and fallback policy.
//
// Error returns are limited to *models.RateLimitError, models.ErrEmptyQuery
// and *models.RetrievalError; generation failures degrade to a
// retrieval-only Answer instead of erroring.
type QueryService interface {
	Answer(ctx context.Context, req *AnswerRequest) (*models.Answer, error)
}
