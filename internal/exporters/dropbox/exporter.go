package dropbox

import (
	"context"
	"errors"
	"net/http"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/sharing"
	"github.com/tidwall/gjson"

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
	ContentURL string
}

// Exporter uploads captures to Dropbox.
type Exporter struct {
	client    *client
	transport *sessionTransport
}

// New creates a Dropbox exporter.
func New(opts Options) *Exporter {
	c := &client{
		httpClient: opts.HTTPClient,
		apiURL:     opts.APIURL,
		contentURL: opts.ContentURL,
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.apiURL == "" {
		c.apiURL = APIURL
	}
	if c.contentURL == "" {
		c.contentURL = ContentURL
	}
	return &Exporter{client: c, transport: &sessionTransport{client: c}}
}

// Type returns domain.ProviderDropbox.
func (e *Exporter) Type() domain.ProviderType {
	return domain.ProviderDropbox
}

// OAuthConfig returns the Dropbox authorization values.
func (e *Exporter) OAuthConfig(creds domain.ClientCredentials) domain.OAuthProviderConfig {
	return oauthConfig(creds)
}

// SetupHint explains where to register a Dropbox app.
func (e *Exporter) SetupHint() string {
	return SetupHint
}

// Transport returns the upload session transport.
func (e *Exporter) Transport() driven.UploadSessionTransport {
	return e.transport
}

// GetUserInfo fetches the current account.
func (e *Exporter) GetUserInfo(ctx context.Context, accessToken string) (*domain.Profile, error) {
	const op = "get current account"

	resp, err := e.client.rpc(ctx, accessToken, "users/get_current_account", nil)
	if err != nil {
		return nil, domain.NewError(domain.ErrCommunication, op, err)
	}
	if !resp.ok() {
		kind := domain.ErrCommunication
		if resp.status == http.StatusUnauthorized {
			kind = domain.ErrAuthorization
		}
		return nil, apiError(kind, op, resp)
	}

	account := gjson.ParseBytes(resp.body)
	profile := &domain.Profile{
		ID:          account.Get("account_id").String(),
		DisplayName: account.Get("name.display_name").String(),
		Email:       account.Get("email").String(),
	}
	if profile.ID == "" {
		return nil, domain.NewError(domain.ErrCommunication, op, errors.New("response has no account_id")).
			WithDetail(string(resp.body))
	}
	return profile, nil
}

// Share creates a public link for an uploaded file. When a link already
// exists, Dropbox returns it inside the conflict error and that link is used.
func (e *Exporter) Share(ctx context.Context, accessToken string, result *domain.UploadResult) (string, error) {
	const op = "create shared link"

	arg := sharing.NewCreateSharedLinkWithSettingsArg(result.Path)
	resp, err := e.client.rpc(ctx, accessToken, "sharing/create_shared_link_with_settings", arg)
	if err != nil {
		return "", domain.NewError(domain.ErrCommunication, op, err)
	}

	if resp.ok() {
		if url := gjson.GetBytes(resp.body, "url").String(); url != "" {
			return url, nil
		}
	} else if resp.status == http.StatusConflict && errorTag(resp.body) == "shared_link_already_exists" {
		if url := gjson.GetBytes(resp.body, "error.shared_link_already_exists.metadata.url").String(); url != "" {
			return url, nil
		}
	} else {
		return "", apiError(domain.ErrCommunication, op, resp)
	}
	return "", domain.NewError(domain.ErrCommunication, op, errors.New("response has no link")).
		WithDetail(string(resp.body))
}
