// Package oauth implements the token endpoint client: the authorization URL,
// the authorization_code grant and the refresh_token grant.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
)

// DefaultTimeout bounds token endpoint calls.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a token response is read.
const maxBodySize = 1 << 20

// Ensure Client implements the OAuthClient interface.
var _ driven.OAuthClient = (*Client)(nil)

// Client talks to one provider's authorization and token endpoints.
type Client struct {
	cfg        domain.OAuthProviderConfig
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a token client. A nil httpClient gets a client with
// DefaultTimeout.
func NewClient(cfg domain.OAuthProviderConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient, now: time.Now}
}

// NewClientFactory returns a factory sharing one HTTP client.
func NewClientFactory(httpClient *http.Client) driven.OAuthClientFactory {
	return func(cfg domain.OAuthProviderConfig) driven.OAuthClient {
		return NewClient(cfg, httpClient)
	}
}

func (c *Client) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.cfg.AuthURL,
			TokenURL: c.cfg.TokenURL,
		},
		RedirectURL: redirectURI,
		Scopes:      c.cfg.Scopes,
	}
}

// AuthCodeURL builds the browser URL for the authorization-code flow with
// an S256 PKCE challenge and the provider's extra parameters.
func (c *Client) AuthCodeURL(redirectURI, state, challenge string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	keys := make([]string, 0, len(c.cfg.ExtraAuthParams))
	for k := range c.cfg.ExtraAuthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		opts = append(opts, oauth2.SetAuthURLParam(k, c.cfg.ExtraAuthParams[k]))
	}
	return c.oauthConfig(redirectURI).AuthCodeURL(state, opts...)
}

// ExchangeCode trades an authorization code and its PKCE verifier for
// tokens. The response must carry access_token, expires_in and
// refresh_token.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier, redirectURI string) (*domain.TokenGrant, error) {
	const op = "exchange code"

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("code", code)
	form.Set("code_verifier", verifier)
	form.Set("redirect_uri", redirectURI)
	if c.cfg.ClientSecret != "" {
		form.Set("client_secret", c.cfg.ClientSecret)
	}

	body, err := c.post(ctx, op, form)
	if err != nil {
		return nil, err
	}
	return c.parseGrant(op, body, "access_token", "expires_in", "refresh_token")
}

// Refresh obtains a new access token. A 400 invalid_grant answer that says
// the refresh token expired or was revoked matches
// domain.ErrRefreshTokenRevoked.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.TokenGrant, error) {
	const op = "refresh token"

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("refresh_token", refreshToken)
	if c.cfg.ClientSecret != "" {
		form.Set("client_secret", c.cfg.ClientSecret)
	}

	body, err := c.post(ctx, op, form)
	if err != nil {
		return nil, err
	}
	return c.parseGrant(op, body, "access_token", "expires_in")
}

// post sends a form to the token endpoint and returns the 2xx body.
func (c *Client) post(ctx context.Context, op string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.ErrCommunication, op, fmt.Errorf("token request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, domain.NewError(domain.ErrCommunication, op, fmt.Errorf("read token response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, providerError(op, form.Get("grant_type"), resp, body)
	}
	return body, nil
}

// providerError classifies a non-2xx token endpoint answer.
func providerError(op, grantType string, resp *http.Response, body []byte) error {
	parsed := gjson.ParseBytes(body)
	retrieveErr := &oauth2.RetrieveError{
		Response:         resp,
		Body:             body,
		ErrorCode:        parsed.Get("error").String(),
		ErrorDescription: parsed.Get("error_description").String(),
		ErrorURI:         parsed.Get("error_uri").String(),
	}

	if grantType == "refresh_token" && isRevoked(resp.StatusCode, retrieveErr) {
		return domain.NewError(domain.ErrAuthorization, op,
			fmt.Errorf("%w: %w", domain.ErrRefreshTokenRevoked, retrieveErr)).WithDetail(string(body))
	}
	if resp.StatusCode >= 500 {
		return domain.NewError(domain.ErrCommunication, op, retrieveErr).WithDetail(string(body))
	}
	return domain.NewError(domain.ErrAuthorization, op, retrieveErr).WithDetail(string(body))
}

func isRevoked(status int, err *oauth2.RetrieveError) bool {
	if status != http.StatusBadRequest || err.ErrorCode != "invalid_grant" {
		return false
	}
	desc := strings.ToLower(err.ErrorDescription)
	return strings.Contains(desc, "expired") || strings.Contains(desc, "revoked")
}

// parseGrant reads a 2xx token response. Unparseable JSON and missing
// required fields are communication errors carrying the raw body.
func (c *Client) parseGrant(op string, body []byte, required ...string) (*domain.TokenGrant, error) {
	if !gjson.ValidBytes(body) {
		return nil, domain.NewError(domain.ErrCommunication, op,
			errors.New("token response is not JSON")).WithDetail(string(body))
	}
	parsed := gjson.ParseBytes(body)

	var missing []string
	for _, field := range required {
		if v := parsed.Get(field); !v.Exists() || v.String() == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, domain.NewError(domain.ErrCommunication, op,
			fmt.Errorf("token response missing %s", strings.Join(missing, ", "))).WithDetail(string(body))
	}

	grant := &domain.TokenGrant{
		AccessToken:  parsed.Get("access_token").String(),
		RefreshToken: parsed.Get("refresh_token").String(),
	}
	if secs := parsed.Get("expires_in").Int(); secs > 0 {
		grant.Expiry = c.now().Add(time.Duration(secs) * time.Second)
	}
	if scope := parsed.Get("scope"); scope.Exists() {
		grant.ScopeReported = true
		grant.Scopes = strings.Fields(scope.String())
	}
	return grant, nil
}
