package driven

// ConfigStore holds settings under dotted keys such as
// "pipeline.chunk_size". The typed getters return the zero value when a
// key is missing or holds another type, so callers apply their own
// defaults.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool

	// Set stores value. File-backed stores write through before returning.
	Set(key string, value any) error

	// Keys lists the keys that are set, sorted.
	Keys() []string

	// Save and Load sync the values with the backing storage.
	Save() error
	Load() error

	// Path names the backing storage, for display.
	Path() string
}
