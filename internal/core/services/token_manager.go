package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
	"github.com/custodia-labs/capshare/internal/logger"
)

// TokenManager hands out access tokens that are valid for at least the
// refresh margin, refreshing them first when needed.
type TokenManager struct {
	clients ClientResolver
	margin  time.Duration
	now     func() time.Time
}

// NewTokenManager creates a token manager with the default one-minute margin.
func NewTokenManager(clients ClientResolver) *TokenManager {
	return &TokenManager{
		clients: clients,
		margin:  domain.DefaultRefreshMargin,
		now:     time.Now,
	}
}

// GetValidAccessToken returns a usable access token for account, mutating
// the account in place when a refresh happens. Callers persist the account.
//
// When the provider reports the refresh token as expired or revoked, the
// account's tokens are cleared and the returned error matches
// domain.ErrReauthorizationRequired.
func (m *TokenManager) GetValidAccessToken(ctx context.Context, account *domain.Account) (string, error) {
	const op = "get access token"

	if !account.IsAuthorized() {
		return "", domain.NewError(domain.ErrAuthorization, op, domain.ErrAuthRequired)
	}
	if !account.NeedsRefresh(m.now(), m.margin) {
		return account.AccessToken, nil
	}
	if !account.HasRefreshToken() {
		return "", domain.NewError(domain.ErrAuthorization, op, domain.ErrAuthRequired)
	}

	client, err := m.clients(account.Provider)
	if err != nil {
		return "", domain.AsExportError(domain.ErrConfiguration, op, err)
	}

	logger.Debug("refreshing access token for account %s (expires %s)", account.ID, account.Expiry.Format(time.RFC3339))
	grant, err := client.Refresh(ctx, account.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshTokenRevoked) {
			account.ClearTokens()
			account.UpdatedAt = m.now()
			logger.Warn("refresh token for account %s was revoked; tokens cleared", account.ID)
			return "", domain.NewError(domain.ErrAuthorization, op,
				fmt.Errorf("%w: %w", domain.ErrReauthorizationRequired, err))
		}
		return "", domain.AsExportError(domain.ErrCommunication, op, err)
	}

	if grant.ScopeReported {
		if missing := domain.MissingScopes(account.Scopes, grant.Scopes); len(missing) > 0 {
			return "", domain.NewError(domain.ErrAuthorization, op,
				fmt.Errorf("%w: %s", domain.ErrMissingScopes, strings.Join(missing, " ")))
		}
	}

	account.AccessToken = grant.AccessToken
	account.Expiry = grant.Expiry
	if grant.RefreshToken != "" {
		account.RefreshToken = grant.RefreshToken
	}
	account.UpdatedAt = m.now()
	return account.AccessToken, nil
}

// Ensure AccountTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*AccountTokenProvider)(nil)

// AccountTokenProvider binds one stored account to the token manager. It
// persists refreshes and cleared tokens and caches the token until
// expiry minus the refresh margin.
type AccountTokenProvider struct {
	accountID string
	store     driven.AccountStore
	manager   *TokenManager

	mu          sync.RWMutex
	cachedToken string
	cacheExpiry time.Time
}

// NewAccountTokenProvider creates a token provider for a stored account.
func NewAccountTokenProvider(accountID string, store driven.AccountStore, manager *TokenManager) *AccountTokenProvider {
	return &AccountTokenProvider{
		accountID: accountID,
		store:     store,
		manager:   manager,
	}
}

// GetToken returns a valid access token, refreshing if necessary.
func (p *AccountTokenProvider) GetToken(ctx context.Context) (string, error) {
	// Fast path: check cache with read lock
	p.mu.RLock()
	if p.cachedToken != "" && p.manager.now().Before(p.cacheExpiry) {
		token := p.cachedToken
		p.mu.RUnlock()
		return token, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if p.cachedToken != "" && p.manager.now().Before(p.cacheExpiry) {
		return p.cachedToken, nil
	}

	account, err := p.store.Get(ctx, p.accountID)
	if err != nil {
		return "", domain.NewError(domain.ErrConfiguration, "get access token", fmt.Errorf("load account %s: %w", p.accountID, err))
	}

	before := *account
	token, tokenErr := p.manager.GetValidAccessToken(ctx, account)

	if account.AccessToken != before.AccessToken ||
		account.RefreshToken != before.RefreshToken ||
		!account.Expiry.Equal(before.Expiry) {
		if err := p.store.Save(ctx, *account); err != nil {
			return "", domain.NewError(domain.ErrConfiguration, "get access token", fmt.Errorf("save account: %w", err))
		}
	}
	if tokenErr != nil {
		p.cachedToken = ""
		p.cacheExpiry = time.Time{}
		return "", tokenErr
	}

	p.cachedToken = token
	p.cacheExpiry = account.Expiry.Add(-p.manager.margin)
	return token, nil
}

// AccountID returns the bound account.
func (p *AccountTokenProvider) AccountID() string {
	return p.accountID
}

// InvalidateCache clears the cached token.
func (p *AccountTokenProvider) InvalidateCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cachedToken = ""
	p.cacheExpiry = time.Time{}
}
