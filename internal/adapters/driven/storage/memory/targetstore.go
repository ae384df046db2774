package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
)

// Ensure TargetStore implements the interface.
var _ driven.TargetStore = (*TargetStore)(nil)

// TargetStore is an in-memory implementation of driven.TargetStore.
type TargetStore struct {
	mu      sync.RWMutex
	targets map[string]domain.Target
}

// NewTargetStore creates a new in-memory target store.
func NewTargetStore() *TargetStore {
	return &TargetStore{
		targets: make(map[string]domain.Target),
	}
}

// Save stores or updates a target.
func (s *TargetStore) Save(_ context.Context, target domain.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[target.ID] = target
	return nil
}

// Get retrieves a target by ID.
func (s *TargetStore) Get(_ context.Context, id string) (*domain.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target, ok := s.targets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &target, nil
}

// List returns all targets ordered by name.
func (s *TargetStore) List(_ context.Context) ([]domain.Target, error) {
	return s.filter(func(domain.Target) bool { return true }), nil
}

// ListByAccount returns the targets bound to an account.
func (s *TargetStore) ListByAccount(_ context.Context, accountID string) ([]domain.Target, error) {
	return s.filter(func(t domain.Target) bool { return t.AccountID == accountID }), nil
}

func (s *TargetStore) filter(keep func(domain.Target) bool) []domain.Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Target, 0, len(s.targets))
	for _, t := range s.targets {
		if keep(t) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Delete removes a target.
func (s *TargetStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.targets, id)
	return nil
}
