package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestCache(t *testing.T, ttl time.Duration, opts ...Option) (*Cache, *fakeClock, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "gogchat")
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return New(dir, ttl, opts...), clock, dir
}

func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, path)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestCache_LazyRoot(t *testing.T) {
	c, _, dir := newTestCache(t, time.Hour)

	_, ok := c.GetSpaces()
	require.False(t, ok)
	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err), "reads must not create the cache dir")

	c.SetSpaces([]models.Space{{ID: "AAAA", DisplayName: "Team"}})
	require.DirExists(t, dir)
}

func TestCache_SpacesRoundTrip(t *testing.T) {
	c, _, dir := newTestCache(t, time.Hour)

	spaces := []models.Space{
		{ID: "AAAA", DisplayName: "Team", Type: models.SpaceTypeRoom},
		{ID: "BBBB", DisplayName: "Alice", Type: models.SpaceTypeDirectMessage},
	}
	c.SetSpaces(spaces)

	got, ok := c.GetSpaces()
	require.True(t, ok)
	require.Equal(t, spaces, got)
	require.Equal(t, []string{"spaces.json"}, listFiles(t, dir))
}

func TestCache_EmptyListIsHit(t *testing.T) {
	c, _, _ := newTestCache(t, time.Hour)

	c.SetMessages("AAAA", nil)
	got, ok := c.GetMessages("AAAA")
	require.True(t, ok)
	require.Empty(t, got)
}

func TestCache_MembersTTL(t *testing.T) {
	c, clock, _ := newTestCache(t, 3600*time.Second)
	members := []models.Member{{UserID: "users/1", DisplayName: "Alice"}}
	c.SetMembers("AAAA", members)

	clock.now = clock.now.Add(3600*time.Second - time.Millisecond)
	got, ok := c.GetMembers("AAAA")
	require.True(t, ok)
	require.Equal(t, members, got)

	clock.now = clock.now.Add(time.Millisecond)
	_, ok = c.GetMembers("AAAA")
	require.True(t, ok, "exactly ttl old is still valid")

	clock.now = clock.now.Add(time.Millisecond)
	_, ok = c.GetMembers("AAAA")
	require.False(t, ok)
}

func TestCache_InvalidateMessages(t *testing.T) {
	c, _, _ := newTestCache(t, time.Hour)
	c.SetMessages("AAAA", []models.Message{{ID: "spaces/AAAA/messages/1", Text: "hi"}})
	c.SetMessages("BBBB", []models.Message{{ID: "spaces/BBBB/messages/1", Text: "yo"}})

	c.InvalidateMessages("AAAA")
	c.InvalidateMessages("AAAA")

	_, ok := c.GetMessages("AAAA")
	require.False(t, ok)
	_, ok = c.GetMessages("BBBB")
	require.True(t, ok)
}

func TestCache_InvalidateAll(t *testing.T) {
	c, _, dir := newTestCache(t, time.Hour)
	c.SetSpaces([]models.Space{{ID: "AAAA"}})
	c.SetMembers("AAAA", []models.Member{{UserID: "users/1"}})
	c.SetUnreadStates(models.NewUnreadSet("AAAA"))

	c.InvalidateAll()

	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err))
	_, ok := c.GetSpaces()
	require.False(t, ok)

	c.SetSpaces([]models.Space{{ID: "CCCC"}})
	got, ok := c.GetSpaces()
	require.True(t, ok)
	require.Len(t, got, 1)
}

func TestCache_UnreadReplacedWholesale(t *testing.T) {
	c, _, dir := newTestCache(t, time.Hour)
	c.SetUnreadStates(models.NewUnreadSet("AAAA", "BBBB"))
	c.SetUnreadStates(models.NewUnreadSet("CCCC"))

	got, ok := c.GetUnreadStates()
	require.True(t, ok)
	require.Equal(t, models.NewUnreadSet("CCCC"), got)

	raw, err := os.ReadFile(filepath.Join(dir, "unread.json"))
	require.NoError(t, err)
	require.Contains(t, string(raw), `"CCCC":"unread"`)
}

func TestCache_MalformedFileIsMiss(t *testing.T) {
	c, _, dir := newTestCache(t, time.Hour)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "messages"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "messages", "AAAA.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spaces.json"), []byte(`{"data":[]}`), 0o644))

	_, ok := c.GetMessages("AAAA")
	require.False(t, ok)
	_, ok = c.GetSpaces()
	require.False(t, ok, "missing timestamp is malformed")

	c.SetMessages("AAAA", []models.Message{{ID: "m1"}})
	got, ok := c.GetMessages("AAAA")
	require.True(t, ok)
	require.Len(t, got, 1)
}

func TestStore_CrashBeforeRenameKeepsOldFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gogchat")
	failing := false
	rename := func(oldpath, newpath string) error {
		if failing {
			return errors.New("simulated crash")
		}
		return os.Rename(oldpath, newpath)
	}
	store := NewStore(dir, withRename(rename))

	require.NoError(t, store.Write(SpacesKey(), []string{"old"}))
	failing = true
	require.Error(t, store.Write(SpacesKey(), []string{"new"}))

	entry, ok := store.Read(SpacesKey())
	require.True(t, ok)
	require.JSONEq(t, `["old"]`, string(entry.Data))
	require.Equal(t, []string{"spaces.json"}, listFiles(t, dir), "temp file cleaned up")
}

func TestStore_LeftoverTempFileIgnored(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gogchat")
	store := NewStore(dir)
	require.NoError(t, store.Write(SpacesKey(), []string{"a"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cache_123.tmp"), []byte("partial"), 0o644))

	entry, ok := store.Read(SpacesKey())
	require.True(t, ok)
	require.JSONEq(t, `["a"]`, string(entry.Data))
}

func TestStore_NoTempLitter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gogchat")
	store := NewStore(dir)
	for i := 0; i < 20; i++ {
		require.NoError(t, store.Write(MessagesKey("AAAA"), i))
	}

	for _, name := range listFiles(t, dir) {
		require.False(t, strings.HasSuffix(name, ".tmp"), name)
	}
}

func TestKey_Path(t *testing.T) {
	p, err := MessagesKey("AAAA").Path()
	require.NoError(t, err)
	require.Equal(t, filepath.Join("messages", "AAAA.json"), p)

	p, err = UnreadKey().Path()
	require.NoError(t, err)
	require.Equal(t, "unread.json", p)

	for _, bad := range []string{"", "..", "a/b", `a\b`} {
		_, err := MembersKey(bad).Path()
		require.Error(t, err, bad)
	}
}
