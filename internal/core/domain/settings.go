package domain

import "time"

// Default settings values.
const (
	DefaultRedirectPort = 8747
	DefaultAuthTimeout  = 5 * time.Minute
)

// Settings holds user-configurable application settings.
type Settings struct {
	// RedirectPort is the fixed local port of the callback listener.
	RedirectPort int
	// AuthTimeout is the ceiling for waiting on the browser redirect.
	AuthTimeout time.Duration
	// ChunkSize is the upload chunk size in bytes (multiple of ChunkAlignment).
	ChunkSize int
	// RequestsPerSecond limits provider API calls; 0 means unlimited.
	RequestsPerSecond float64
	// Verbose enables debug logging.
	Verbose bool

	Dropbox     ClientCredentials
	GoogleDrive ClientCredentials
}

// ClientCredentials are the OAuth client values registered with a provider.
// Desktop PKCE clients may leave Secret empty.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// Credentials returns the client credentials configured for a provider.
func (s *Settings) Credentials(p ProviderType) ClientCredentials {
	switch p {
	case ProviderDropbox:
		return s.Dropbox
	case ProviderGoogleDrive:
		return s.GoogleDrive
	default:
		return ClientCredentials{}
	}
}

// DefaultSettings returns settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		RedirectPort: DefaultRedirectPort,
		AuthTimeout:  DefaultAuthTimeout,
		ChunkSize:    DefaultChunkSize,
	}
}

// ValidChunkSize returns true for positive multiples of ChunkAlignment.
func ValidChunkSize(n int) bool {
	return n > 0 && n%ChunkAlignment == 0
}
