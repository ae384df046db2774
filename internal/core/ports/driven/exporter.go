package driven

import (
	"context"

	"github.com/custodia-labs/capshare/internal/core/domain"
)

// Exporter is one storage provider. It supplies the values the
// authorization flow needs, a profile lookup, and the wire format of its
// upload session.
type Exporter interface {
	// Type returns the provider type.
	Type() domain.ProviderType

	// OAuthConfig returns endpoints, scopes and extra parameters combined
	// with the given client credentials.
	OAuthConfig(creds domain.ClientCredentials) domain.OAuthProviderConfig

	// GetUserInfo fetches the profile of the token owner.
	GetUserInfo(ctx context.Context, accessToken string) (*domain.Profile, error)

	// Transport returns the session transport used for chunked uploads.
	Transport() UploadSessionTransport

	// SetupHint explains where to register an OAuth client.
	SetupHint() string
}

// Sharer creates a public link for an uploaded file.
// Exporters that support sharing also implement this interface.
type Sharer interface {
	Share(ctx context.Context, accessToken string, result *domain.UploadResult) (string, error)
}

// UploadSessionTransport carries chunks of one session to a provider.
// Start records the provider session id on the session. The driver
// advances the offset after each successful call.
type UploadSessionTransport interface {
	// Start opens a session and sends the first chunk.
	Start(ctx context.Context, accessToken string, session *domain.UploadSession, chunk []byte) error

	// Append sends a chunk at session.Offset.
	Append(ctx context.Context, accessToken string, session *domain.UploadSession, chunk []byte) error

	// Finish sends the final chunk (possibly empty) at session.Offset and
	// commits the file.
	Finish(ctx context.Context, accessToken string, session *domain.UploadSession, chunk []byte) (*domain.UploadResult, error)
}
