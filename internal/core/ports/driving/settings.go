package driving

import "github.com/custodia-labs/reportqa/internal/core/domain"

// SettingsService reads and writes config.toml through typed settings.
// Unset keys read as their defaults and empty API keys fall back to the
// provider's environment variable.
type SettingsService interface {
	Get() (*domain.AppSettings, error)

	// Save writes every key. Empty API keys and keys equal to the
	// environment value are not written.
	Save(settings *domain.AppSettings) error

	// Set parses value for the dotted key. Unknown keys and malformed
	// values fail with domain.ErrInvalidInput.
	Set(key, value string) error

	// Keys lists the settable keys in display order.
	Keys() []string

	GetDefaults() domain.AppSettings
}
