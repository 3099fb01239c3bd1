package unread

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

type spaceState struct {
	lastRead   string
	hasRead    bool
	readErr    error
	latest     string
	msgErr     error
	panics     bool
	blockUntil bool
}

type fakeFetcher struct {
	spaces map[string]spaceState
	delay  time.Duration

	mu       sync.Mutex
	calls    map[string]int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeFetcher(spaces map[string]spaceState) *fakeFetcher {
	return &fakeFetcher{spaces: spaces, calls: map[string]int{}}
}

func (f *fakeFetcher) enter() func() {
	n := f.inFlight.Add(1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeFetcher) FetchReadState(ctx context.Context, spaceID string) (string, bool, error) {
	defer f.enter()()
	f.mu.Lock()
	f.calls[spaceID]++
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	st := f.spaces[spaceID]
	if st.panics {
		panic("boom")
	}
	if st.blockUntil {
		<-ctx.Done()
		return "", false, ctx.Err()
	}
	return st.lastRead, st.hasRead, st.readErr
}

func (f *fakeFetcher) FetchMessages(ctx context.Context, spaceID string, limit int) ([]models.Message, error) {
	st := f.spaces[spaceID]
	if st.msgErr != nil {
		return nil, st.msgErr
	}
	if limit != 1 {
		return nil, errors.New("prober must ask for exactly one message")
	}
	if st.latest == "" {
		return nil, nil
	}
	return []models.Message{{ID: spaceID + "/m", CreatedAt: st.latest}}, nil
}

func TestProbe_Classification(t *testing.T) {
	f := newFakeFetcher(map[string]spaceState{
		"NEW":     {lastRead: "2024-01-01T10:00:00Z", hasRead: true, latest: "2024-01-01T11:00:00Z"},
		"OLD":     {lastRead: "2024-01-01T10:00:00Z", hasRead: true, latest: "2024-01-01T09:00:00Z"},
		"EQUAL":   {lastRead: "2024-01-01T10:00:00Z", hasRead: true, latest: "2024-01-01T10:00:00Z"},
		"NOSTATE": {latest: "2024-01-01T11:00:00Z"},
		"EMPTY":   {lastRead: "2024-01-01T10:00:00Z", hasRead: true},
	})
	p := NewProber(f, 2, time.Second)

	got := p.Probe(context.Background(), []string{"NEW", "OLD", "EQUAL", "NOSTATE", "EMPTY"})
	require.Equal(t, models.NewUnreadSet("NEW"), got)
}

func TestProbe_FailureIsolation(t *testing.T) {
	f := newFakeFetcher(map[string]spaceState{
		"A": {lastRead: "2024-01-01T10:00:00Z", hasRead: true, latest: "2024-01-02T00:00:00Z"},
		"B": {readErr: errors.New("gateway down")},
		"C": {panics: true},
		"D": {lastRead: "2024-01-01T10:00:00Z", hasRead: true, msgErr: errors.New("boom")},
		"E": {lastRead: "2024-01-01T10:00:00Z", hasRead: true, latest: "2024-01-03T00:00:00Z"},
	})
	p := NewProber(f, 3, time.Second)

	got := p.Probe(context.Background(), []string{"A", "B", "C", "D", "E"})
	require.Equal(t, models.NewUnreadSet("A", "E"), got)
}

func TestProbe_DedupesAndSkipsEmpty(t *testing.T) {
	f := newFakeFetcher(map[string]spaceState{
		"A": {lastRead: "2024-01-01T10:00:00Z", hasRead: true, latest: "2024-01-02T00:00:00Z"},
	})
	p := NewProber(f, 4, time.Second)

	got := p.Probe(context.Background(), []string{"A", "", "A", "  ", "A"})
	require.Equal(t, models.NewUnreadSet("A"), got)
	require.Equal(t, map[string]int{"A": 1}, f.calls)
}

func TestProbe_Empty(t *testing.T) {
	p := NewProber(newFakeFetcher(nil), 4, time.Second)
	require.Empty(t, p.Probe(context.Background(), nil))
}

func TestProbe_WorkerLimit(t *testing.T) {
	spaces := map[string]spaceState{}
	ids := make([]string, 0, 12)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		spaces[id] = spaceState{}
		ids = append(ids, id)
	}
	f := newFakeFetcher(spaces)
	f.delay = 10 * time.Millisecond
	p := NewProber(f, 3, time.Second)

	p.Probe(context.Background(), ids)
	require.LessOrEqual(t, int(f.maxSeen.Load()), 3)
	require.Len(t, f.calls, 12)
}

func TestProbe_Timeout(t *testing.T) {
	f := newFakeFetcher(map[string]spaceState{
		"SLOW": {blockUntil: true},
		"A":    {lastRead: "2024-01-01T10:00:00Z", hasRead: true, latest: "2024-01-02T00:00:00Z"},
	})
	p := NewProber(f, 2, 30*time.Millisecond)

	start := time.Now()
	got := p.Probe(context.Background(), []string{"SLOW", "A"})
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, models.NewUnreadSet("A"), got)
}

func TestIsNewer(t *testing.T) {
	require.True(t, IsNewer("2024-01-01T10:00:01Z", "2024-01-01T10:00:00Z"))
	require.False(t, IsNewer("2024-01-01T10:00:00Z", "2024-01-01T10:00:00Z"))
	require.True(t, IsNewer("2024-01-01T10:00:00.500Z", "2024-01-01T10:00:00Z"))
	require.False(t, IsNewer("2024-01-01T10:00:00Z", "2024-01-01T10:00:00.500Z"))
	require.False(t, IsNewer("", "2024-01-01T10:00:00Z"))
	require.True(t, IsNewer("b", "a"))
}
