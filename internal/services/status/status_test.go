package status

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/askdoc/askdoc/internal/models"
)

type stubRetrieval struct{ err error }

func (s *stubRetrieval) Search(ctx context.Context, queryText string, maxResults int, relevanceThreshold float64) ([]models.RetrievedChunk, error) {
	return nil, nil
}
func (s *stubRetrieval) HealthCheck(ctx context.Context) error { return s.err }

type stubGeneration struct{ err error }

func (s *stubGeneration) Generate(ctx context.Context, queryText string, chunks []models.RetrievedChunk) (*models.GeneratedAnswer, error) {
	return nil, nil
}
func (s *stubGeneration) HealthCheck(ctx context.Context) error { return s.err }
func (s *stubGeneration) Provider() string                      { return "stub" }
func (s *stubGeneration) Close() error                          { return nil }

func TestSnapshotBeforeFirstRefresh(t *testing.T) {
	service := NewService(&stubRetrieval{}, &stubGeneration{}, 0, arbor.NewLogger())

	snap := service.Snapshot()
	assert.Equal(t, "healthy", snap.Status)
	assert.Equal(t, "unknown", snap.Dependencies["retrieval"].Status)
	assert.Equal(t, "unknown", snap.Dependencies["generation"].Status)
}

func TestRefreshAllHealthy(t *testing.T) {
	service := NewService(&stubRetrieval{}, &stubGeneration{}, 0, arbor.NewLogger())
	service.Refresh()

	snap := service.Snapshot()
	assert.Equal(t, "healthy", snap.Status)
	assert.Equal(t, "healthy", snap.Dependencies["retrieval"].Status)
	assert.Equal(t, "healthy", snap.Dependencies["generation"].Status)
	assert.False(t, snap.Dependencies["retrieval"].CheckedAt.IsZero())
}

func TestRefreshDegradedOnProbeFailure(t *testing.T) {
	service := NewService(&stubRetrieval{err: errors.New("connection refused")}, &stubGeneration{}, 0, arbor.NewLogger())
	service.Refresh()

	snap := service.Snapshot()
	assert.Equal(t, "degraded", snap.Status)
	assert.Equal(t, "unhealthy", snap.Dependencies["retrieval"].Status)
	assert.Equal(t, "connection refused", snap.Dependencies["retrieval"].Error)
	assert.Equal(t, "healthy", snap.Dependencies["generation"].Status)
}

func TestSnapshotReturnsCopy(t *testing.T) {
	service := NewService(&stubRetrieval{}, &stubGeneration{}, 0, arbor.NewLogger())
	service.Refresh()

	snap := service.Snapshot()
	snap.Dependencies["retrieval"] = DependencyStatus{Status: "tampered"}

	assert.Equal(t, "healthy", service.Snapshot().Dependencies["retrieval"].Status)
}
