package dropbox

import "github.com/custodia-labs/capshare/internal/core/domain"

// Default Dropbox endpoints.
const (
	AuthURL    = "https://www.dropbox.com/oauth2/authorize"
	TokenURL   = "https://api.dropboxapi.com/oauth2/token"
	APIURL     = "https://api.dropboxapi.com"
	ContentURL = "https://content.dropboxapi.com"
)

// OAuth scopes.
const (
	ScopeAccountInfoRead   = "account_info.read"
	ScopeFilesContentWrite = "files.content.write"
	ScopeSharingWrite      = "sharing.write"
)

// Scopes are requested on every authorization.
var Scopes = []string{ScopeAccountInfoRead, ScopeFilesContentWrite, ScopeSharingWrite}

// RequiredScopes must be granted for uploads to work.
var RequiredScopes = []string{ScopeFilesContentWrite}

// SetupHint tells the user where a client id comes from.
const SetupHint = "create an app with scoped access at https://www.dropbox.com/developers/apps " +
	"and add http://localhost:<port> as a redirect URI"

// oauthConfig combines the fixed Dropbox values with client credentials.
// token_access_type=offline makes Dropbox return a refresh token.
func oauthConfig(creds domain.ClientCredentials) domain.OAuthProviderConfig {
	return domain.OAuthProviderConfig{
		ClientID:       creds.ClientID,
		ClientSecret:   creds.ClientSecret,
		AuthURL:        AuthURL,
		TokenURL:       TokenURL,
		Scopes:         Scopes,
		RequiredScopes: RequiredScopes,
		ExtraAuthParams: map[string]string{
			"token_access_type": "offline",
		},
	}
}
