package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
)

// Ensure AccountStore implements the interface.
var _ driven.AccountStore = (*AccountStore)(nil)

// AccountStore is an in-memory implementation of driven.AccountStore.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]domain.Account),
	}
}

// Save stores or updates an account.
func (s *AccountStore) Save(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account.Scopes = slices.Clone(account.Scopes)
	s.accounts[account.ID] = account
	return nil
}

// Get retrieves an account by ID.
func (s *AccountStore) Get(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	account.Scopes = slices.Clone(account.Scopes)
	return &account, nil
}

// List returns all accounts ordered by creation time.
func (s *AccountStore) List(_ context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		account.Scopes = slices.Clone(account.Scopes)
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// Delete removes an account.
func (s *AccountStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, id)
	return nil
}
