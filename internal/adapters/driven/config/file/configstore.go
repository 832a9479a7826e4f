package file

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/reportqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

const (
	fileName = "config.toml"

	header = "# reportqa configuration.\n" +
		"# Change values with 'reportqa settings set <key> <value>'.\n\n"
)

// ConfigStore keeps settings in a TOML file. Reads are served from memory.
// Every Set rewrites the file, and a failed write rolls the value back so
// memory never drifts from disk.
type ConfigStore struct {
	*memory.ConfigStore

	// writeMu serialises file writes and their rollbacks.
	writeMu  sync.Mutex
	filePath string
}

// NewConfigStore opens configDir/config.toml, creating the directory if
// needed. An empty configDir means ~/.reportqa. A missing file is an empty
// configuration.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		configDir = filepath.Join(home, ".reportqa")
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	s := &ConfigStore{
		ConfigStore: memory.NewConfigStore(),
		filePath:    filepath.Join(configDir, fileName),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Set stores value and writes the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev, had := s.ConfigStore.Get(key)
	_ = s.ConfigStore.Set(key, value) //nolint:errcheck // memory Set cannot fail
	if err := s.write(); err != nil {
		if had {
			_ = s.ConfigStore.Set(key, prev) //nolint:errcheck // memory Set cannot fail
		} else {
			s.ConfigStore.Delete(key)
		}
		return err
	}
	return nil
}

// Save rewrites the file from memory.
func (s *ConfigStore) Save() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.write(); err != nil {
		return err
	}
	return s.ConfigStore.Save()
}

// Load replaces the in-memory values with the file contents.
func (s *ConfigStore) Load() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		s.ConfigStore.Replace(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.filePath, err)
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}
	s.ConfigStore.Replace(flattenMap(tree, ""))
	return nil
}

// write replaces the file atomically: a temp file in the same directory is
// renamed over it. Caller holds writeMu.
func (s *ConfigStore) write() error {
	body, err := toml.Marshal(nestMap(s.ConfigStore.Snapshot()))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(header)
	buf.Write(body)

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), fileName+".*")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("writing config: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmpName, s.filePath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Path returns the config file location.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// flattenMap turns nested TOML tables into dotted keys:
// {"llm": {"model": "x"}} becomes {"llm.model": "x"}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	out := make(map[string]any)
	for key, value := range m {
		if prefix != "" {
			key = prefix + "." + key
		}
		table, ok := value.(map[string]any)
		if !ok {
			out[key] = value
			continue
		}
		for k, v := range flattenMap(table, key) {
			out[k] = v
		}
	}
	return out
}

// nestMap is the inverse of flattenMap. When a key is both a value and a
// table prefix ("flat" and "flat.child") the value wins.
func nestMap(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return strings.Count(a, ".") - strings.Count(b, ".")
	})

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		if table := descend(root, parts[:len(parts)-1]); table != nil {
			leaf := parts[len(parts)-1]
			if _, taken := table[leaf]; !taken {
				table[leaf] = flat[key]
			}
		}
	}
	return root
}

// descend walks path from root, creating tables on the way. It returns nil
// when a value already sits where a table is needed.
func descend(root map[string]any, path []string) map[string]any {
	node := root
	for _, part := range path {
		child, exists := node[part]
		if !exists {
			next := make(map[string]any)
			node[part] = next
			node = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return nil
		}
		node = next
	}
	return node
}
