package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
	"github.com/custodia-labs/capshare/internal/core/ports/driving"
)

// Ensure AccountService implements the interface.
var _ driving.AccountService = (*AccountService)(nil)

// AccountService manages provider accounts.
type AccountService struct {
	accounts driven.AccountStore
	targets  driven.TargetStore
	registry *ExporterRegistry
	settings *SettingsService
	flow     *AuthorizationFlow
	tokens   *TokenManager
	now      func() time.Time
}

// NewAccountService creates a new account service.
func NewAccountService(
	accounts driven.AccountStore,
	targets driven.TargetStore,
	registry *ExporterRegistry,
	settings *SettingsService,
	flow *AuthorizationFlow,
	tokens *TokenManager,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		targets:  targets,
		registry: registry,
		settings: settings,
		flow:     flow,
		tokens:   tokens,
		now:      time.Now,
	}
}

// Create stores a new, unauthorized account for a provider.
func (s *AccountService) Create(ctx context.Context, provider domain.ProviderType) (*domain.Account, error) {
	if _, err := s.registry.Get(provider); err != nil {
		return nil, err
	}
	now := s.now()
	account := domain.Account{
		ID:        uuid.New().String(),
		Provider:  provider,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}
	return &account, nil
}

// Authorize runs the authorization flow for a stored account and saves the
// populated account. The stored account is untouched on failure.
func (s *AccountService) Authorize(ctx context.Context, id string, cancel *domain.Cancellation) (*domain.Account, error) {
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, "authorize", fmt.Errorf("load account %s: %w", id, err))
	}
	exporter, err := s.registry.Get(account.Provider)
	if err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, "authorize", err)
	}
	cfg, err := s.registry.OAuthConfig(s.settings, account.Provider)
	if err != nil {
		return nil, err
	}

	if err := s.flow.Authorize(ctx, exporter, cfg, account, cancel); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, *account); err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, "authorize", fmt.Errorf("save account: %w", err))
	}
	return account, nil
}

// Get retrieves an account by ID.
func (s *AccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.Get(ctx, id)
}

// List returns all accounts.
func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	return s.accounts.List(ctx)
}

// Refresh makes sure the account holds a token valid past the refresh
// margin, persisting any change, including cleared tokens.
func (s *AccountService) Refresh(ctx context.Context, id string) (*domain.Account, error) {
	provider := NewAccountTokenProvider(id, s.accounts, s.tokens)
	if _, err := provider.GetToken(ctx); err != nil {
		return nil, err
	}
	return s.accounts.Get(ctx, id)
}

// TokenProvider returns a store-backed token provider for an account.
func (s *AccountService) TokenProvider(id string) *AccountTokenProvider {
	return NewAccountTokenProvider(id, s.accounts, s.tokens)
}

// Remove deletes an account and the targets bound to it.
func (s *AccountService) Remove(ctx context.Context, id string) error {
	if _, err := s.accounts.Get(ctx, id); err != nil {
		return err
	}
	targets, err := s.targets.ListByAccount(ctx, id)
	if err != nil {
		return fmt.Errorf("list targets: %w", err)
	}
	for _, t := range targets {
		if err := s.targets.Delete(ctx, t.ID); err != nil {
			return fmt.Errorf("delete target %s: %w", t.ID, err)
		}
	}
	return s.accounts.Delete(ctx, id)
}
