package interfaces

import (
	"context"

	"github.com/askdoc/askdoc/internal/models"
)

// GenerationService wraps an external text-generation service. The service
// receives the query plus retrieved context and produces a grounded, cited
// answer.
//
// Implementations concatenate chunk contents in the order received up to
// the configured context budget, dropping whole chunks that would exceed it
// (a chunk is never truncated mid-content). Temperature and model identity
// come from configuration.
type GenerationService interface {
	// Generate produces an answer grounded on the supplied chunks.
	// Failures surface as *models.GenerationError.
	Generate(ctx context.Context, queryText string, chunks []models.RetrievedChunk) (*models.GeneratedAnswer, error)

	// HealthCheck verifies the generation service is reachable and
	// responding.
	HealthCheck(ctx context.Context) error

	// Provider returns the configured provider name ("gemini", "claude").
	Provider() string

	// Close releases client resources.
	Close() error
}
