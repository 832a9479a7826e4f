package file

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
	"github.com/custodia-labs/reportqa/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// defaults holds the built-in prompts and the README copied next to them.
//
//go:embed defaults
var defaults embed.FS

const readmeFile = "README.md"

var placeholderRe = regexp.MustCompile(`\{[a-z_]+\}`)

// PromptStore serves prompt templates from name.txt files in a directory
// the user may edit. On first use the directory is seeded with the
// built-in prompts; existing files are never overwritten. Missing or empty
// files fall back to the built-in text.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// DefaultPrompt returns the built-in template for name.
func DefaultPrompt(name string) (string, bool) {
	data, err := defaults.ReadFile("defaults/" + name + ".txt")
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// NewPromptStore does no I/O. An empty promptDir means ~/.reportqa/prompts.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".reportqa", "prompts")
	}
	return &PromptStore{dir: promptDir, cache: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the template for name, preferring the user's file.
func (s *PromptStore) Load(name string) (string, error) {
	s.seedOnce.Do(s.seed)

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	builtin, known := DefaultPrompt(name)
	prompt, err := s.readUserPrompt(name)
	switch {
	case err == nil && prompt != "":
		if known {
			warnPlaceholders(name, prompt, builtin)
		}
	case known:
		prompt = builtin
	case err != nil:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	default:
		return "", fmt.Errorf("load prompt %q: file is empty", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

func (s *PromptStore) readUserPrompt(name string) (string, error) {
	if s.seedErr != nil {
		return "", s.seedErr
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Reload drops cached prompts so the next Load reads the files again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Watch reloads the cache whenever a .txt file in the directory changes,
// until ctx is done. The TUI and the MCP server run it for their lifetime.
func (s *PromptStore) Watch(ctx context.Context) error {
	s.seedOnce.Do(s.seed)
	if s.seedErr != nil {
		return s.seedErr
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".txt" || event.Op&relevant == 0 {
				continue
			}
			logger.Debug("prompt %s changed, reloading", filepath.Base(event.Name))
			s.Reload()
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("prompt watcher: %v", werr)
		}
	}
}

// seed copies every built-in file that the directory does not have yet.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	entries, err := defaults.ReadDir("defaults")
	if err != nil {
		s.seedErr = err
		return
	}
	for _, entry := range entries {
		target := filepath.Join(s.dir, entry.Name())
		if _, err := os.Stat(target); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := defaults.ReadFile("defaults/" + entry.Name())
		if err != nil {
			s.seedErr = err
			return
		}
		if entry.Name() != readmeFile {
			data = []byte(strings.TrimSpace(string(data)))
		}
		if err := os.WriteFile(target, data, 0o600); err != nil {
			s.seedErr = fmt.Errorf("write default %s: %w", entry.Name(), err)
			return
		}
	}
}

// placeholderDiff compares the {name} placeholders of an edited prompt with
// the built-in one.
func placeholderDiff(edited, builtin string) (missing, unknown []string) {
	have := placeholderRe.FindAllString(edited, -1)
	want := placeholderRe.FindAllString(builtin, -1)
	for _, p := range want {
		if !slices.Contains(have, p) && !slices.Contains(missing, p) {
			missing = append(missing, p)
		}
	}
	for _, p := range have {
		if !slices.Contains(want, p) && !slices.Contains(unknown, p) {
			unknown = append(unknown, p)
		}
	}
	return missing, unknown
}

func warnPlaceholders(name, edited, builtin string) {
	missing, unknown := placeholderDiff(edited, builtin)
	if len(missing) > 0 {
		logger.Warn("prompt %s.txt does not use %s", name, strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		logger.Warn("prompt %s.txt uses unknown %s, which will be sent as is", name, strings.Join(unknown, ", "))
	}
}
