package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
)

// Ensure ExportHistoryStore implements the interface.
var _ driven.ExportHistoryStore = (*ExportHistoryStore)(nil)

// ExportHistoryStore is an in-memory implementation of driven.ExportHistoryStore.
type ExportHistoryStore struct {
	mu      sync.RWMutex
	records []domain.ExportRecord
}

// NewExportHistoryStore creates a new in-memory export history store.
func NewExportHistoryStore() *ExportHistoryStore {
	return &ExportHistoryStore{}
}

// Append stores a new record.
func (s *ExportHistoryStore) Append(_ context.Context, record domain.ExportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// ListByCapture returns the records of one capture, newest first.
func (s *ExportHistoryStore) ListByCapture(_ context.Context, captureID string) ([]domain.ExportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.ExportRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].CaptureID == captureID {
			result = append(result, s.records[i])
		}
	}
	return result, nil
}

// List returns up to limit records, newest first.
func (s *ExportHistoryStore) List(_ context.Context, limit int) ([]domain.ExportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.ExportRecord, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, s.records[i])
	}
	return result, nil
}
