package driving

import "github.com/custodia-labs/capshare/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, applying defaults.
	Get() (*domain.Settings, error)

	// Set validates and persists one setting given as text.
	Set(key, value string) error

	// Value returns the stored text of one setting and whether it is set.
	Value(key string) (string, bool)

	// Keys returns the recognised setting keys.
	Keys() []string
}
