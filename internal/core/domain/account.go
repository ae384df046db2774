package domain

import (
	"slices"
	"time"
)

// DefaultRefreshMargin is how long before expiry an access token is
// treated as already expired.
const DefaultRefreshMargin = time.Minute

// Account is the identity bound to one authorized connection to one provider.
//
// The record is created empty before the first authorization and populated
// when the token exchange succeeds. Refreshes mutate AccessToken and Expiry
// in place; a revoked refresh token clears the token fields but keeps the
// identity so the user can re-authorize the same account.
type Account struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`
	// Provider identifies which exporter this account belongs to.
	Provider ProviderType `json:"provider"`

	// DisplayName is the profile name reported by the provider.
	DisplayName string `json:"display_name,omitempty"`
	// Email is the profile email reported by the provider.
	Email string `json:"email,omitempty"`

	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token,omitempty"`
	// Expiry is when the access token expires.
	Expiry time.Time `json:"expiry,omitempty"`
	// RefreshToken is used to obtain new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`
	// Scopes are the scopes the provider actually granted.
	Scopes []string `json:"scopes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAuthorized returns true if the account holds an access token and expiry.
func (a *Account) IsAuthorized() bool {
	return a.AccessToken != "" && !a.Expiry.IsZero()
}

// NeedsRefresh returns true when now+margin has reached the expiry.
func (a *Account) NeedsRefresh(now time.Time, margin time.Duration) bool {
	return !now.Add(margin).Before(a.Expiry)
}

// HasRefreshToken returns true if a refresh token is available.
func (a *Account) HasRefreshToken() bool {
	return a.RefreshToken != ""
}

// ClearTokens drops the access token, expiry and refresh token.
// Identity fields and granted scopes are kept.
func (a *Account) ClearTokens() {
	a.AccessToken = ""
	a.Expiry = time.Time{}
	a.RefreshToken = ""
}

// Identifier returns the best human-readable label for the account.
func (a *Account) Identifier() string {
	switch {
	case a.Email != "":
		return a.Email
	case a.DisplayName != "":
		return a.DisplayName
	default:
		return a.ID
	}
}

// MissingScopes returns the scopes in want that are absent from granted.
func MissingScopes(want, granted []string) []string {
	var missing []string
	for _, s := range want {
		if !slices.Contains(granted, s) {
			missing = append(missing, s)
		}
	}
	return missing
}
