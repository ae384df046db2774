package googledrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
)

// Ensure Exporter implements the exporter and sharer ports.
var (
	_ driven.Exporter = (*Exporter)(nil)
	_ driven.Sharer   = (*Exporter)(nil)
)

// Options configures an Exporter. Zero values use the public endpoints and
// http.DefaultClient.
type Options struct {
	HTTPClient *http.Client
	APIURL     string
	UploadURL  string
}

// Exporter uploads captures to Google Drive.
type Exporter struct {
	httpClient *http.Client
	apiURL     string
	transport  *resumableTransport
}

// New creates a Google Drive exporter.
func New(opts Options) *Exporter {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.APIURL == "" {
		opts.APIURL = APIURL
	}
	if opts.UploadURL == "" {
		opts.UploadURL = UploadURL
	}
	return &Exporter{
		httpClient: opts.HTTPClient,
		apiURL:     opts.APIURL,
		transport:  newResumableTransport(opts.HTTPClient, opts.UploadURL),
	}
}

// Type returns domain.ProviderGoogleDrive.
func (e *Exporter) Type() domain.ProviderType {
	return domain.ProviderGoogleDrive
}

// OAuthConfig returns the Google authorization values.
func (e *Exporter) OAuthConfig(creds domain.ClientCredentials) domain.OAuthProviderConfig {
	return oauthConfig(creds)
}

// SetupHint explains where to create Google client credentials.
func (e *Exporter) SetupHint() string {
	return SetupHint
}

// Transport returns the resumable upload transport.
func (e *Exporter) Transport() driven.UploadSessionTransport {
	return e.transport
}

// newService creates a Drive client authorized with a fixed access token.
// Token refresh is handled by the caller's token provider.
func (e *Exporter) newService(ctx context.Context, accessToken string) (*drive.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, e.httpClient), ts)
	return drive.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(e.apiURL))
}

// GetUserInfo fetches the Drive user of the token.
func (e *Exporter) GetUserInfo(ctx context.Context, accessToken string) (*domain.Profile, error) {
	const op = "get drive user"

	srv, err := e.newService(ctx, accessToken)
	if err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, op, err)
	}
	about, err := srv.About.Get().Fields("user(displayName,emailAddress,permissionId)").Context(ctx).Do()
	if err != nil {
		kind := domain.ErrCommunication
		if IsUnauthorized(err) {
			kind = domain.ErrAuthorization
		}
		return nil, wrapError(kind, op, err)
	}
	if about.User == nil {
		return nil, domain.NewError(domain.ErrCommunication, op, errors.New("response has no user"))
	}
	return &domain.Profile{
		ID:          about.User.PermissionId,
		DisplayName: about.User.DisplayName,
		Email:       about.User.EmailAddress,
	}, nil
}

// Share grants anyone-with-the-link read access and returns the web link.
func (e *Exporter) Share(ctx context.Context, accessToken string, result *domain.UploadResult) (string, error) {
	const op = "share drive file"

	if result.ID == "" {
		return "", domain.NewError(domain.ErrCommunication, op, fmt.Errorf("%w: file has no id", domain.ErrInvalidInput))
	}
	srv, err := e.newService(ctx, accessToken)
	if err != nil {
		return "", domain.NewError(domain.ErrConfiguration, op, err)
	}

	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if _, err := srv.Permissions.Create(result.ID, perm).Context(ctx).Do(); err != nil {
		return "", wrapError(domain.ErrCommunication, op, err)
	}
	f, err := srv.Files.Get(result.ID).Fields("webViewLink").Context(ctx).Do()
	if err != nil {
		return "", wrapError(domain.ErrCommunication, op, err)
	}
	if f.WebViewLink == "" {
		return "", domain.NewError(domain.ErrCommunication, op, errors.New("file has no web link"))
	}
	return f.WebViewLink, nil
}
