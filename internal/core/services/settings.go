package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
	"github.com/custodia-labs/capshare/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyRedirectPort      = "oauth.redirect_port"
	keyAuthTimeout       = "oauth.timeout_seconds"
	keyChunkSizeKiB      = "upload.chunk_size_kib"
	keyRequestsPerSecond = "upload.requests_per_second"
	keyDropboxClientID   = "dropbox.client_id"
	keyDropboxSecret     = "dropbox.client_secret"
	keyGoogleDriveID     = "googledrive.client_id"
	keyGoogleDriveSecret = "googledrive.client_secret"
	keyVerbose           = "verbose"
)

const chunkAlignmentKiB = domain.ChunkAlignment / 1024

type settingKind int

const (
	kindInt settingKind = iota
	kindFloat
	kindBool
	kindString
)

var settingKinds = map[string]settingKind{
	keyRedirectPort:      kindInt,
	keyAuthTimeout:       kindInt,
	keyChunkSizeKiB:      kindInt,
	keyRequestsPerSecond: kindFloat,
	keyDropboxClientID:   kindString,
	keyDropboxSecret:     kindString,
	keyGoogleDriveID:     kindString,
	keyGoogleDriveSecret: kindString,
	keyVerbose:           kindBool,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// Stored values that fail validation fall back to defaults.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings := domain.DefaultSettings()

	if port := s.configStore.GetInt(keyRedirectPort); validatePort(port) == nil {
		settings.RedirectPort = port
	}
	if secs := s.configStore.GetInt(keyAuthTimeout); secs > 0 {
		settings.AuthTimeout = time.Duration(secs) * time.Second
	}
	if kib := s.configStore.GetInt(keyChunkSizeKiB); validateChunkSize(kib) == nil {
		settings.ChunkSize = kib * 1024
	}
	if rps := s.configStore.GetFloat(keyRequestsPerSecond); rps > 0 {
		settings.RequestsPerSecond = rps
	}
	settings.Verbose = s.configStore.GetBool(keyVerbose)
	settings.Dropbox = domain.ClientCredentials{
		ClientID:     s.configStore.GetString(keyDropboxClientID),
		ClientSecret: os.Getenv(SecretEnvVar(keyDropboxSecret)),
	}
	settings.GoogleDrive = domain.ClientCredentials{
		ClientID:     s.configStore.GetString(keyGoogleDriveID),
		ClientSecret: os.Getenv(SecretEnvVar(keyGoogleDriveSecret)),
	}

	return &settings, nil
}

// Set validates and persists one setting given as text. Client secrets
// are refused; they only come from the environment.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if IsSecret(key) {
		return fmt.Errorf("%w: %s is not stored on disk; set %s in the environment",
			domain.ErrInvalidInput, key, SecretEnvVar(key))
	}

	var typed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		if err := validateInt(key, n); err != nil {
			return err
		}
		typed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		typed = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		typed = b
	default:
		typed = strings.TrimSpace(value)
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Value returns the text of one setting and whether it is set. Secrets
// are read from their environment variable.
func (s *SettingsService) Value(key string) (string, bool) {
	if IsSecret(key) {
		v := os.Getenv(SecretEnvVar(key))
		return v, v != ""
	}
	val, ok := s.configStore.Get(key)
	if !ok {
		return "", false
	}
	return fmt.Sprint(val), true
}

// Keys returns the recognised setting keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsSecret reports whether a key holds a client secret.
func IsSecret(key string) bool {
	return strings.HasSuffix(key, ".client_secret")
}

// SecretEnvVar names the environment variable carrying a secret key,
// e.g. CAPSHARE_DROPBOX_CLIENT_SECRET.
func SecretEnvVar(key string) string {
	return "CAPSHARE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func validateInt(key string, n int) error {
	switch key {
	case keyRedirectPort:
		return validatePort(n)
	case keyChunkSizeKiB:
		return validateChunkSize(n)
	case keyAuthTimeout:
		if n <= 0 {
			return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, key)
		}
	}
	return nil
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535", domain.ErrInvalidInput)
	}
	return nil
}

func validateChunkSize(kib int) error {
	if kib <= 0 || kib%chunkAlignmentKiB != 0 {
		return fmt.Errorf("%w: chunk size must be a positive multiple of %d KiB", domain.ErrInvalidInput, chunkAlignmentKiB)
	}
	return nil
}
