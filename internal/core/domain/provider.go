package domain

// ProviderType identifies a storage provider an export can target.
type ProviderType string

const (
	// ProviderDropbox exports to Dropbox upload sessions.
	ProviderDropbox ProviderType = "dropbox"
	// ProviderGoogleDrive exports to Google Drive resumable uploads.
	ProviderGoogleDrive ProviderType = "googledrive"
)

// IsValid returns true if the provider type is recognised.
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderDropbox, ProviderGoogleDrive:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p ProviderType) String() string {
	return string(p)
}

// DisplayName returns the provider name shown to users.
func (p ProviderType) DisplayName() string {
	switch p {
	case ProviderDropbox:
		return "Dropbox"
	case ProviderGoogleDrive:
		return "Google Drive"
	default:
		return "Unknown"
	}
}

// OAuthProviderConfig holds the per-provider values the authorization flow
// needs. Client credentials come from settings; endpoints and scopes are
// fixed by each exporter.
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	// Scopes are requested in the authorization URL.
	Scopes []string
	// RequiredScopes must all be present in the redirect's scope parameter
	// when the provider reports one.
	RequiredScopes []string
	// ExtraAuthParams are appended to the authorization URL
	// (e.g. token_access_type=offline).
	ExtraAuthParams map[string]string
}

// Validate checks that the configuration can start an authorization.
func (c OAuthProviderConfig) Validate() error {
	if c.ClientID == "" || c.AuthURL == "" || c.TokenURL == "" {
		return ErrInvalidInput
	}
	return nil
}
