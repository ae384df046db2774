package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/custodia-labs/capshare/internal/core/domain"
)

// PKCE code verifier length in random bytes (86 characters once encoded,
// within the 43-128 characters RFC 7636 allows).
const codeVerifierLength = 64

// stateLength is the number of random bytes in the CSRF state.
const stateLength = 32

// entropy is the random source. Replaced in tests.
var entropy io.Reader = rand.Reader

func randomString(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := io.ReadFull(entropy, bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// generateCodeVerifier creates a cryptographically random code verifier for PKCE.
func generateCodeVerifier() (string, error) {
	return randomString(codeVerifierLength)
}

// generateCodeChallenge creates a S256 code challenge from the verifier.
func generateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// generatePKCE returns a fresh verifier and its challenge.
// An exhausted entropy source is a configuration error.
func generatePKCE() (domain.PKCE, error) {
	verifier, err := generateCodeVerifier()
	if err != nil {
		return domain.PKCE{}, domain.NewError(domain.ErrConfiguration, "generate pkce", fmt.Errorf("read entropy: %w", err))
	}
	return domain.PKCE{Verifier: verifier, Challenge: generateCodeChallenge(verifier)}, nil
}

// generateState creates a random state parameter for CSRF protection.
func generateState() (string, error) {
	state, err := randomString(stateLength)
	if err != nil {
		return "", domain.NewError(domain.ErrConfiguration, "generate state", fmt.Errorf("read entropy: %w", err))
	}
	return state, nil
}
