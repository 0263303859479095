package interfaces

import (
	"context"

	"github.com/askdoc/askdoc/internal/models"
)

// RetrievalService wraps the external chunk-retrieval service. The service
// applies the relevance threshold itself; no re-ranking happens client-side.
type RetrievalService interface {
	// Search returns chunks ordered best-first for the query. maxResults
	// and relevanceThreshold of zero fall back to configured defaults.
	// Failures surface as *models.RetrievalError.
	Search(ctx context.Context, queryText string, maxResults int, relevanceThreshold float64) ([]models.RetrievedChunk, error)

	// HealthCheck verifies the retrieval service is reachable.
	HealthCheck(ctx context.Context) error
}
