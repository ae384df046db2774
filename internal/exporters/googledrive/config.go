package googledrive

import (
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/capshare/internal/core/domain"
)

// Default Drive endpoints.
const (
	APIURL    = "https://www.googleapis.com/drive/v3/"
	UploadURL = "https://www.googleapis.com/upload/drive/v3/files"
)

// Scopes are requested on every authorization. drive.file limits access to
// files the app created.
var Scopes = []string{drive.DriveFileScope}

// RequiredScopes must be granted for uploads to work.
var RequiredScopes = []string{drive.DriveFileScope}

// SetupHint tells the user where client credentials come from.
const SetupHint = "create a Desktop app OAuth client at https://console.cloud.google.com/apis/credentials " +
	"set googledrive.client_id and export CAPSHARE_GOOGLEDRIVE_CLIENT_SECRET"

// oauthConfig combines the Google endpoints with client credentials.
// access_type=offline with prompt=consent makes Google return a refresh
// token on every authorization.
func oauthConfig(creds domain.ClientCredentials) domain.OAuthProviderConfig {
	return domain.OAuthProviderConfig{
		ClientID:       creds.ClientID,
		ClientSecret:   creds.ClientSecret,
		AuthURL:        google.Endpoint.AuthURL,
		TokenURL:       google.Endpoint.TokenURL,
		Scopes:         Scopes,
		RequiredScopes: RequiredScopes,
		ExtraAuthParams: map[string]string{
			"access_type": "offline",
			"prompt":      "consent",
		},
	}
}
