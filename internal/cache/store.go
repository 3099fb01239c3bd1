// Package cache persists gogchat responses on disk so the TUI can show
// something before the network answers.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cipher-shad0w/google-chat-cli/internal/logging"
)

const tmpPattern = ".cache_*.tmp"

// Kind identifies a class of cached resource.
type Kind string

const (
	KindSpaces   Kind = "spaces"
	KindMessages Kind = "messages"
	KindMembers  Kind = "members"
	KindUnread   Kind = "unread"
)

// Key addresses one cache entry.
type Key struct {
	Kind    Kind
	SpaceID string
}

func SpacesKey() Key { return Key{Kind: KindSpaces} }

func UnreadKey() Key { return Key{Kind: KindUnread} }

func MessagesKey(spaceID string) Key { return Key{Kind: KindMessages, SpaceID: spaceID} }

func MembersKey(spaceID string) Key { return Key{Kind: KindMembers, SpaceID: spaceID} }

// Path returns the entry's location relative to the cache root.
func (k Key) Path() (string, error) {
	switch k.Kind {
	case KindSpaces, KindUnread:
		return string(k.Kind) + ".json", nil
	case KindMessages, KindMembers:
		id := strings.TrimSpace(k.SpaceID)
		if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
			return "", fmt.Errorf("invalid space id %q", k.SpaceID)
		}
		return filepath.Join(string(k.Kind), id+".json"), nil
	default:
		return "", fmt.Errorf("unknown cache kind %q", k.Kind)
	}
}

// Entry is the on-disk envelope.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Store reads and writes envelopes under a root directory. Writes are
// atomic: a reader sees either the previous file or the new one.
type Store struct {
	root   string
	now    func() time.Time
	rename func(oldpath, newpath string) error
	logger zerolog.Logger

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// withRename swaps the final rename step; tests use it to simulate a crash
// between writing the temp file and publishing it.
func withRename(rename func(oldpath, newpath string) error) Option {
	return func(s *Store) {
		s.rename = rename
	}
}

// NewStore returns a store rooted at dir. The directory is created on the
// first write, not here.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		root:   dir,
		now:    time.Now,
		rename: os.Rename,
		logger: logging.Component("cache"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the cache directory.
func (s *Store) Root() string {
	return s.root
}

// Write stores value under key with the current timestamp.
func (s *Store) Write(key Key, value any) error {
	rel, err := key.Path()
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", rel, err)
	}
	payload, err := json.Marshal(Entry{Timestamp: s.now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("encode %s: %w", rel, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAtomic(filepath.Join(s.root, rel), payload)
}

func (s *Store) writeAtomic(path string, payload []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("publish %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Read returns the entry under key. A missing or unreadable entry is a
// miss (ok=false); malformed files are logged and otherwise ignored.
func (s *Store) Read(key Key) (Entry, bool) {
	rel, err := key.Path()
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache read skipped")
		return Entry{}, false
	}

	data, err := os.ReadFile(filepath.Join(s.root, rel))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", rel).Msg("cache read failed")
		}
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Timestamp.IsZero() || len(entry.Data) == 0 {
		s.logger.Warn().Err(err).Str("path", rel).Msg("ignoring malformed cache entry")
		return Entry{}, false
	}
	return entry, true
}

// Delete removes the entry under key. Deleting a missing entry is not an
// error.
func (s *Store) Delete(key Key) error {
	rel, err := key.Path()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(filepath.Join(s.root, rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", rel, err)
	}
	return nil
}

// DeleteAll removes the whole cache directory.
func (s *Store) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}
