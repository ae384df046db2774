package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
	"github.com/custodia-labs/capshare/internal/logger"
)

// listenerStopGrace bounds how long a stopping listener may finish
// in-flight responses.
const listenerStopGrace = time.Second

// authorizing guards the fixed redirect port: one authorization per process.
var authorizing atomic.Bool

// StateObserver is notified of every state change. For
// AuthStateAwaitingRedirect, detail holds the authorization URL so it can
// be shown when no browser opens.
type StateObserver func(state domain.AuthState, detail string)

// AuthorizationFlow runs the interactive PKCE authorization-code flow.
type AuthorizationFlow struct {
	listeners driven.CallbackListenerFactory
	clients   driven.OAuthClientFactory
	browser   driven.BrowserLauncher
	port      int
	timeout   time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	state    domain.AuthState
	observer StateObserver
}

// AuthorizationOptions configures an AuthorizationFlow.
type AuthorizationOptions struct {
	// Port is the redirect listener port.
	Port int
	// Timeout is the ceiling for waiting on the browser redirect.
	Timeout time.Duration
}

// NewAuthorizationFlow creates an authorization flow. browser may be nil.
func NewAuthorizationFlow(
	listeners driven.CallbackListenerFactory,
	clients driven.OAuthClientFactory,
	browser driven.BrowserLauncher,
	opts AuthorizationOptions,
) *AuthorizationFlow {
	if opts.Port == 0 {
		opts.Port = domain.DefaultRedirectPort
	}
	if opts.Timeout <= 0 {
		opts.Timeout = domain.DefaultAuthTimeout
	}
	return &AuthorizationFlow{
		listeners: listeners,
		clients:   clients,
		browser:   browser,
		port:      opts.Port,
		timeout:   opts.Timeout,
		now:       time.Now,
		state:     domain.AuthStateIdle,
	}
}

// OnStateChange registers the state observer.
func (f *AuthorizationFlow) OnStateChange(observer StateObserver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observer = observer
}

// State returns the current state.
func (f *AuthorizationFlow) State() domain.AuthState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

func (f *AuthorizationFlow) setState(state domain.AuthState, detail string) {
	f.mu.Lock()
	f.state = state
	observer := f.observer
	f.mu.Unlock()

	logger.Debug("authorization: %s", state)
	if observer != nil {
		observer(state, detail)
	}
}

// fail moves to a terminal state and wraps the cause.
func (f *AuthorizationFlow) fail(state domain.AuthState, kind error, err error) error {
	f.setState(state, "")
	return domain.AsExportError(kind, "authorize", err)
}

// Authorize runs one authorization attempt for account against the
// provider described by cfg. On success the account's tokens, scopes and
// profile are populated together; on failure the account is unchanged.
// cancel may be nil.
//
//nolint:funlen // the state machine reads best as one sequence
func (f *AuthorizationFlow) Authorize(
	ctx context.Context,
	exporter driven.Exporter,
	cfg domain.OAuthProviderConfig,
	account *domain.Account,
	cancel *domain.Cancellation,
) error {
	if err := cfg.Validate(); err != nil {
		return domain.NewError(domain.ErrConfiguration, "authorize",
			fmt.Errorf("%s client id is not configured: %w", exporter.Type().DisplayName(), err))
	}
	if !authorizing.CompareAndSwap(false, true) {
		return domain.NewError(domain.ErrAuthorization, "authorize", domain.ErrAuthorizationInProgress)
	}
	defer authorizing.Store(false)

	logger.Section("Authorize " + exporter.Type().DisplayName())

	pkce, err := generatePKCE()
	if err != nil {
		return f.fail(domain.AuthStateCommunicationError, domain.ErrConfiguration, err)
	}
	state, err := generateState()
	if err != nil {
		return f.fail(domain.AuthStateCommunicationError, domain.ErrConfiguration, err)
	}

	f.setState(domain.AuthStateStartingListener, "")
	listener := f.listeners(f.port, state, cfg.RequiredScopes)
	if err := listener.Start(); err != nil {
		return f.fail(domain.AuthStateCommunicationError, domain.ErrConfiguration,
			fmt.Errorf("start callback listener on port %d: %w", f.port, err))
	}
	defer stopListener(listener)

	client := f.clients(cfg)
	redirectURI := listener.RedirectURI()
	authURL := client.AuthCodeURL(redirectURI, state, pkce.Challenge)

	if f.browser != nil {
		if err := f.browser.Open(authURL); err != nil {
			logger.Warn("could not open browser: %v", err)
		}
	}
	f.setState(domain.AuthStateAwaitingRedirect, authURL)

	timer := time.NewTimer(f.timeout)
	defer timer.Stop()

	select {
	case <-listener.Done():
	case <-cancel.Done():
		return f.fail(domain.AuthStateCancelled, domain.ErrAuthorization, domain.ErrCancelled)
	case <-ctx.Done():
		return f.fail(domain.AuthStateCancelled, domain.ErrAuthorization, fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err()))
	case <-timer.C:
		return f.fail(domain.AuthStateTimedOut, domain.ErrAuthorization,
			fmt.Errorf("%w after %s", domain.ErrTimedOut, f.timeout))
	}

	result, _ := listener.Result()
	if result.Err != nil {
		return f.fail(domain.AuthStateRejected, domain.ErrAuthorization, result.Err)
	}
	f.setState(domain.AuthStateCodeReceived, "")

	// A cancel that raced the redirect still wins.
	if cancel.Cancelled() {
		return f.fail(domain.AuthStateCancelled, domain.ErrAuthorization, domain.ErrCancelled)
	}

	f.setState(domain.AuthStateExchangingTokens, "")
	grant, err := client.ExchangeCode(ctx, result.Code, pkce.Verifier, redirectURI)
	if err != nil {
		return f.fail(exchangeFailureState(err), domain.ErrCommunication, err)
	}

	profile, err := exporter.GetUserInfo(ctx, grant.AccessToken)
	if err != nil {
		return f.fail(domain.AuthStateCommunicationError, domain.ErrCommunication,
			fmt.Errorf("fetch profile: %w", err))
	}

	scopes := cfg.Scopes
	switch {
	case grant.ScopeReported:
		scopes = grant.Scopes
	case len(result.Scopes) > 0:
		scopes = result.Scopes
	}

	updated := *account
	updated.AccessToken = grant.AccessToken
	updated.Expiry = grant.Expiry
	updated.RefreshToken = grant.RefreshToken
	updated.Scopes = scopes
	updated.DisplayName = profile.DisplayName
	updated.Email = profile.Email
	updated.UpdatedAt = f.now()
	*account = updated

	f.setState(domain.AuthStateAuthorized, "")
	logger.Info("authorized %s account %s", exporter.Type(), account.Identifier())
	return nil
}

// exchangeFailureState maps a token exchange error to a terminal state.
// Provider answers are rejections; transport and parse failures are not.
func exchangeFailureState(err error) domain.AuthState {
	if errors.Is(err, domain.ErrAuthorization) {
		return domain.AuthStateRejected
	}
	return domain.AuthStateCommunicationError
}

func stopListener(listener driven.CallbackListener) {
	ctx, cancel := context.WithTimeout(context.Background(), listenerStopGrace)
	defer cancel()
	if err := listener.Stop(ctx); err != nil {
		logger.Warn("stop callback listener: %v", err)
	}
}
