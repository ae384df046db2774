package driven

import (
	"context"

	"github.com/custodia-labs/capshare/internal/core/domain"
)

// OAuthClient talks to one provider's authorization and token endpoints.
type OAuthClient interface {
	// AuthCodeURL builds the URL the user opens to grant access.
	AuthCodeURL(redirectURI, state, challenge string) string

	// ExchangeCode trades an authorization code and PKCE verifier for tokens.
	// The response must carry an access token, an expiry and a refresh token.
	ExchangeCode(ctx context.Context, code, verifier, redirectURI string) (*domain.TokenGrant, error)

	// Refresh obtains a new access token. The refresh token in the grant is
	// empty unless the provider rotated it.
	// Returns domain.ErrRefreshTokenRevoked when the refresh token is no longer valid.
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenGrant, error)
}

// OAuthClientFactory creates an OAuthClient for a provider configuration.
type OAuthClientFactory func(cfg domain.OAuthProviderConfig) OAuthClient

// CallbackListener captures the outcome of one authorization attempt.
// A listener is single-use: the first resolution wins and later callbacks
// are answered but ignored.
type CallbackListener interface {
	// Start begins listening. Fails if the port is already bound.
	Start() error

	// Stop shuts the listener down, waiting for in-flight requests until
	// ctx is done.
	Stop(ctx context.Context) error

	// RedirectURI is the value sent as redirect_uri.
	RedirectURI() string

	// Done is closed once a result is available.
	Done() <-chan struct{}

	// Result returns the captured result and whether one is available.
	Result() (domain.CallbackResult, bool)
}

// CallbackListenerFactory creates a listener for one attempt. The listener
// validates the CSRF state and the required scopes itself.
type CallbackListenerFactory func(port int, expectedState string, requiredScopes []string) CallbackListener

// BrowserLauncher opens a URL in the system browser.
type BrowserLauncher interface {
	Open(url string) error
}
