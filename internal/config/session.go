package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Space list categories.
const (
	CategoryAll    = "all"
	CategorySpaces = "spaces"
	CategoryDMs    = "dms"
)

// Session is the UI state remembered between runs.
type Session struct {
	// SpaceID is the space that was focused when the TUI last exited.
	SpaceID string `yaml:"space,omitempty"`
	// SpaceName is the display name of SpaceID (for display).
	SpaceName string `yaml:"space_name,omitempty"`
	// Category is the active space list filter.
	Category string `yaml:"category,omitempty"`
	// UpdatedAt is when the session was last modified.
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// IsEmpty returns true if nothing has been remembered.
func (s *Session) IsEmpty() bool {
	return s.SpaceID == "" && s.Category == ""
}

// SetSpace records the focused space.
func (s *Session) SetSpace(id, name string) {
	s.SpaceID = id
	s.SpaceName = name
	s.UpdatedAt = time.Now()
}

// SetCategory records the space list filter. Unknown categories reset to all.
func (s *Session) SetCategory(category string) {
	s.Category = NormalizeCategory(category)
	s.UpdatedAt = time.Now()
}

// NormalizeCategory maps unknown values to CategoryAll.
func NormalizeCategory(category string) string {
	switch category {
	case CategorySpaces, CategoryDMs:
		return category
	default:
		return CategoryAll
	}
}

// SessionStore loads and saves the session file.
type SessionStore struct {
	path string
	mu   sync.RWMutex
}

// NewSessionStore creates a session store.
// If path is empty, uses <ConfigDir>/session.yaml.
func NewSessionStore(path string) *SessionStore {
	if path == "" {
		path = filepath.Join(ConfigDir(), "session.yaml")
	}
	return &SessionStore{path: path}
}

// Path returns the session file path.
func (s *SessionStore) Path() string {
	return s.path
}

// Load reads the session from disk.
// Returns an empty session if the file doesn't exist.
func (s *SessionStore) Load() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := &Session{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return sess, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if err := yaml.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if sess.Category != "" {
		sess.Category = NormalizeCategory(sess.Category)
	}

	return sess, nil
}

// Save writes the session to disk atomically.
func (s *SessionStore) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Clear removes the session file.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
