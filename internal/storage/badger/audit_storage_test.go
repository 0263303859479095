package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/askdoc/askdoc/internal/models"
)

func newTestStorage(t *testing.T) *AuditStorage {
	t.Helper()

	options := badgerhold.DefaultOptions
	options.Dir = t.TempDir()
	options.ValueDir = options.Dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store}
	return NewAuditStorage(db, arbor.NewLogger()).(*AuditStorage)
}

func TestAuditRecordAndCount(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := storage.Record(ctx, &models.AuditRecord{
			Channel:    "api",
			UserID:     "10.0.0.1",
			QueryChars: 20 + i,
			Outcome:    models.AuditOutcomeAnswered,
			Confidence: 0.9,
			ElapsedMs:  100,
		})
		require.NoError(t, err)
	}

	count, err := storage.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestAuditRecentNewestFirst(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		err := storage.Record(ctx, &models.AuditRecord{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Channel:   "slack",
			UserID:    "U123",
			Outcome:   models.AuditOutcomeAnswered,
		})
		require.NoError(t, err)
	}

	records, err := storage.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Timestamp.After(records[1].Timestamp))
	assert.Equal(t, base.Add(4*time.Minute).Unix(), records[0].Timestamp.Unix())
}

func TestAuditRecordSetsTimestamp(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	rec := &models.AuditRecord{Channel: "widget", Outcome: models.AuditOutcomeNoResults}
	require.NoError(t, storage.Record(ctx, rec))
	assert.False(t, rec.Timestamp.IsZero())
}
