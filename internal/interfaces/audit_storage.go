package interfaces

import (
	"context"

	"github.com/askdoc/askdoc/internal/models"
)

// AuditStorage persists pipeline outcome records for operational review.
type AuditStorage interface {
	Record(ctx context.Context, rec *models.AuditRecord) error
	Recent(ctx context.Context, limit int) ([]models.AuditRecord, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
