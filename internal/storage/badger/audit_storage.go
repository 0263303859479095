package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/askdoc/askdoc/internal/interfaces"
	"github.com/askdoc/askdoc/internal/models"
)

// AuditStorage implements the AuditStorage interface for Badger
type AuditStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAuditStorage creates a new AuditStorage instance
func NewAuditStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AuditStorage {
	return &AuditStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AuditStorage) Record(ctx context.Context, rec *models.AuditRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if err := s.db.Store().Insert(badgerhold.NextSequence(), rec); err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// Recent returns the newest records first.
func (s *AuditStorage) Recent(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	var records []models.AuditRecord
	query := badgerhold.Where(badgerhold.Key).Ge(uint64(0)).SortBy("Timestamp").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	return records, nil
}

func (s *AuditStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.AuditRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return int(count), nil
}

func (s *AuditStorage) Close() error {
	return s.db.Close()
}
