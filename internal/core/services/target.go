package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
	"github.com/custodia-labs/capshare/internal/core/ports/driving"
)

// Ensure TargetService implements the interface.
var _ driving.TargetService = (*TargetService)(nil)

// TargetService manages export targets.
type TargetService struct {
	targets  driven.TargetStore
	accounts driven.AccountStore
}

// NewTargetService creates a new target service.
func NewTargetService(targets driven.TargetStore, accounts driven.AccountStore) *TargetService {
	return &TargetService{targets: targets, accounts: accounts}
}

// Add validates and stores a new target. The target's provider must match
// its account's provider.
func (s *TargetService) Add(ctx context.Context, target domain.Target) (*domain.Target, error) {
	account, err := s.accounts.Get(ctx, target.AccountID)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", target.AccountID, err)
	}
	if target.Provider == "" {
		target.Provider = account.Provider
	}
	if target.Provider != account.Provider {
		return nil, fmt.Errorf("%w: target provider %s does not match account provider %s",
			domain.ErrInvalidInput, target.Provider, account.Provider)
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if target.ID == "" {
		target.ID = uuid.New().String()
	} else if existing, err := s.targets.Get(ctx, target.ID); err == nil && existing != nil {
		return nil, domain.ErrAlreadyExists
	}
	if err := s.targets.Save(ctx, target); err != nil {
		return nil, fmt.Errorf("save target: %w", err)
	}
	return &target, nil
}

// Get retrieves a target by ID.
func (s *TargetService) Get(ctx context.Context, id string) (*domain.Target, error) {
	return s.targets.Get(ctx, id)
}

// List returns all targets.
func (s *TargetService) List(ctx context.Context) ([]domain.Target, error) {
	return s.targets.List(ctx)
}

// Remove deletes a target.
func (s *TargetService) Remove(ctx context.Context, id string) error {
	if _, err := s.targets.Get(ctx, id); err != nil {
		return err
	}
	return s.targets.Delete(ctx, id)
}
