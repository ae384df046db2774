package driving

import (
	"context"

	"github.com/custodia-labs/capshare/internal/core/domain"
)

// AccountService manages provider accounts and their authorization.
type AccountService interface {
	// Create stores a new, unauthorized account for a provider.
	Create(ctx context.Context, provider domain.ProviderType) (*domain.Account, error)

	// Authorize runs the interactive authorization flow for an account and
	// persists the resulting tokens and profile.
	Authorize(ctx context.Context, id string, cancel *domain.Cancellation) (*domain.Account, error)

	// Get retrieves an account by ID.
	Get(ctx context.Context, id string) (*domain.Account, error)

	// List returns all accounts.
	List(ctx context.Context) ([]domain.Account, error)

	// Refresh returns a valid access token for the account, refreshing it
	// when it is within the safety margin of expiry.
	Refresh(ctx context.Context, id string) (*domain.Account, error)

	// Remove deletes an account and the targets bound to it.
	Remove(ctx context.Context, id string) error
}
