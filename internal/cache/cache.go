package cache

import (
	"encoding/json"
	"time"

	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

// Cache is the typed view over a Store. Setters never fail the caller:
// a cache that cannot be written only costs the next startup its head
// start, so errors are logged and dropped.
type Cache struct {
	store      *Store
	membersTTL time.Duration
}

// New returns a cache rooted at dir. Members older than membersTTL are
// treated as missing.
func New(dir string, membersTTL time.Duration, opts ...Option) *Cache {
	return &Cache{store: NewStore(dir, opts...), membersTTL: membersTTL}
}

// Store exposes the underlying envelope store.
func (c *Cache) Store() *Store {
	return c.store
}

// GetSpaces returns the cached space list.
func (c *Cache) GetSpaces() ([]models.Space, bool) {
	var spaces []models.Space
	if !c.get(SpacesKey(), &spaces) {
		return nil, false
	}
	return spaces, true
}

// SetSpaces replaces the cached space list.
func (c *Cache) SetSpaces(spaces []models.Space) {
	c.set(SpacesKey(), nonNil(spaces))
}

// GetMessages returns the cached messages for a space.
func (c *Cache) GetMessages(spaceID string) ([]models.Message, bool) {
	var msgs []models.Message
	if !c.get(MessagesKey(spaceID), &msgs) {
		return nil, false
	}
	return msgs, true
}

// SetMessages replaces the cached messages for a space.
func (c *Cache) SetMessages(spaceID string, msgs []models.Message) {
	c.set(MessagesKey(spaceID), nonNil(msgs))
}

// InvalidateMessages drops the cached messages for a space.
func (c *Cache) InvalidateMessages(spaceID string) {
	if err := c.store.Delete(MessagesKey(spaceID)); err != nil {
		c.store.logger.Warn().Err(err).Str("space_id", spaceID).Msg("invalidate messages failed")
	}
}

// GetMembers returns the cached members of a space if the entry is no
// older than the members TTL.
func (c *Cache) GetMembers(spaceID string) ([]models.Member, bool) {
	entry, ok := c.store.Read(MembersKey(spaceID))
	if !ok {
		return nil, false
	}
	if c.store.now().Sub(entry.Timestamp) > c.membersTTL {
		return nil, false
	}
	var members []models.Member
	if err := json.Unmarshal(entry.Data, &members); err != nil {
		c.store.logger.Warn().Err(err).Str("space_id", spaceID).Msg("ignoring malformed members entry")
		return nil, false
	}
	return members, true
}

// SetMembers replaces the cached members of a space.
func (c *Cache) SetMembers(spaceID string, members []models.Member) {
	c.set(MembersKey(spaceID), nonNil(members))
}

// GetUnreadStates returns the cached unread set.
func (c *Cache) GetUnreadStates() (models.UnreadSet, bool) {
	var states map[string]string
	if !c.get(UnreadKey(), &states) {
		return nil, false
	}
	return models.UnreadSetFromStates(states), true
}

// SetUnreadStates replaces the cached unread set wholesale.
func (c *Cache) SetUnreadStates(set models.UnreadSet) {
	c.set(UnreadKey(), set.States())
}

// InvalidateAll removes every cached entry.
func (c *Cache) InvalidateAll() {
	if err := c.store.DeleteAll(); err != nil {
		c.store.logger.Warn().Err(err).Msg("invalidate all failed")
	}
}

func (c *Cache) get(key Key, out any) bool {
	entry, ok := c.store.Read(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(entry.Data, out); err != nil {
		c.store.logger.Warn().Err(err).Str("kind", string(key.Kind)).Msg("ignoring malformed cache entry")
		return false
	}
	return true
}

func (c *Cache) set(key Key, value any) {
	if err := c.store.Write(key, value); err != nil {
		c.store.logger.Warn().Err(err).Str("kind", string(key.Kind)).Str("space_id", key.SpaceID).Msg("cache write failed")
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
