package memory

import (
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore holds dotted keys in memory. Save records a snapshot and
// Load reverts to it, so a caller can try settings and back them out.
// The TOML store layers file persistence on top of it.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
	saved  map[string]any
}

// NewConfigStore returns an empty store.
func NewConfigStore() *ConfigStore {
	return NewConfigStoreFrom(nil)
}

// NewConfigStoreFrom seeds the store with a copy of values. The seed is
// also the saved snapshot.
func NewConfigStoreFrom(values map[string]any) *ConfigStore {
	s := &ConfigStore{}
	s.Replace(values)
	return s
}

// Replace swaps in a copy of values and makes it the saved snapshot.
func (s *ConfigStore) Replace(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = clone(values)
	s.saved = clone(values)
}

// Snapshot returns a copy of the current values.
func (s *ConfigStore) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.values)
}

// Get returns the raw value for key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

func (s *ConfigStore) GetString(key string) string {
	return typed(s, key, asString)
}

// GetInt accepts any integer width. Floats are truncated.
func (s *ConfigStore) GetInt(key string) int {
	return typed(s, key, asInt)
}

func (s *ConfigStore) GetFloat(key string) float64 {
	return typed(s, key, asFloat)
}

func (s *ConfigStore) GetBool(key string) bool {
	return typed(s, key, asBool)
}

// typed converts the value at key, or returns the zero value when the key
// is missing or holds another type.
func typed[T any](s *ConfigStore, key string, convert func(any) (T, bool)) T {
	var zero T
	val, ok := s.Get(key)
	if !ok {
		return zero
	}
	out, ok := convert(val)
	if !ok {
		return zero
	}
	return out
}

func asString(v any) (string, bool) {
	str, ok := v.(string)
	return str, ok
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint32:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// Keys returns every stored key, sorted.
func (s *ConfigStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values))
}

func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes key. Missing keys are ignored.
func (s *ConfigStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Save records the current values as the snapshot Load returns to.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = clone(s.values)
	return nil
}

// Load discards changes made since the last Save.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = clone(s.saved)
	return nil
}

func (s *ConfigStore) Path() string {
	return ":memory:"
}

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	maps.Copy(out, m)
	return out
}
