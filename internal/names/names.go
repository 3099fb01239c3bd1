// Package names keeps user-chosen display names for chat users whose real
// names the API does not reveal.
package names

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/cipher-shad0w/google-chat-cli/internal/logging"
)

// Store is the names.json override file.
type Store struct {
	path   string
	logger zerolog.Logger

	mu        sync.RWMutex
	overrides map[string]string
}

// DefaultPath returns <configDir>/names.json.
func DefaultPath(configDir string) string {
	return filepath.Join(configDir, "names.json")
}

// Open loads the override file at path. A missing or malformed file yields
// an empty store; the latter is logged.
func Open(path string) *Store {
	s := &Store{
		path:      path,
		logger:    logging.Component("names"),
		overrides: map[string]string{},
	}
	s.Reload()
	return s
}

// Reload re-reads the file. A missing file clears the overrides; an
// unreadable or malformed one keeps the current set.
func (s *Store) Reload() {
	next, err := s.read()
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("could not load name overrides")
		return
	}
	s.mu.Lock()
	s.overrides = next
	s.mu.Unlock()
}

func (s *Store) read() (map[string]string, error) {
	out := map[string]string{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	for id, v := range raw {
		name, ok := v.(string)
		if !ok || strings.TrimSpace(id) == "" || strings.TrimSpace(name) == "" {
			continue
		}
		out[id] = name
	}
	return out, nil
}

// Watch reloads the file whenever it changes on disk, until ctx is done.
// The parent directory is watched since writers replace the file by
// rename.
func (s *Store) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create names dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					s.logger.Debug().Str("op", ev.Op.String()).Msg("name overrides changed on disk")
					s.Reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn().Err(err).Msg("names watcher error")
			}
		}
	}()
	return nil
}

// Path returns the override file path.
func (s *Store) Path() string {
	return s.path
}

// Overrides returns a copy of the user ID -> name map.
func (s *Store) Overrides() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.overrides))
	for id, name := range s.overrides {
		out[id] = name
	}
	return out
}

// Set records a name for userID and persists the file. An empty name
// removes the override.
func (s *Store) Set(userID, name string) error {
	userID = strings.TrimSpace(userID)
	name = strings.TrimSpace(name)
	if userID == "" {
		return errors.New("user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]string, len(s.overrides)+1)
	for id, n := range s.overrides {
		next[id] = n
	}
	if name == "" {
		delete(next, userID)
	} else {
		next[userID] = name
	}

	if err := writeAtomicJSON(s.path, next); err != nil {
		return fmt.Errorf("save name override: %w", err)
	}
	s.overrides = next
	return nil
}

func writeAtomicJSON(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".names-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
