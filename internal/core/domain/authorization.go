package domain

import "time"

// AuthState is a step of the interactive authorization flow.
type AuthState string

// Authorization states. Authorized, TimedOut, Rejected, Cancelled and
// CommunicationError are terminal.
const (
	AuthStateIdle               AuthState = "idle"
	AuthStateStartingListener   AuthState = "starting_listener"
	AuthStateAwaitingRedirect   AuthState = "awaiting_browser_redirect"
	AuthStateCodeReceived       AuthState = "code_received"
	AuthStateExchangingTokens   AuthState = "exchanging_tokens"
	AuthStateAuthorized         AuthState = "authorized"
	AuthStateTimedOut           AuthState = "timed_out"
	AuthStateRejected           AuthState = "rejected"
	AuthStateCancelled          AuthState = "cancelled"
	AuthStateCommunicationError AuthState = "communication_error"
)

// IsTerminal returns true if the flow cannot leave this state.
func (s AuthState) IsTerminal() bool {
	switch s {
	case AuthStateAuthorized, AuthStateTimedOut, AuthStateRejected,
		AuthStateCancelled, AuthStateCommunicationError:
		return true
	default:
		return false
	}
}

// PKCE is a proof key pair (RFC 7636, S256 method).
type PKCE struct {
	Verifier  string
	Challenge string
}

// CallbackResult is what a listener captured from the browser redirect.
// Err is set when the redirect was rejected.
type CallbackResult struct {
	Code   string
	Scopes []string
	Err    error
}

// TokenGrant is a successful token endpoint response.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	// Scopes is set only when ScopeReported is true.
	Scopes        []string
	ScopeReported bool
}

// Profile is the "who am I" answer of a provider.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
}
