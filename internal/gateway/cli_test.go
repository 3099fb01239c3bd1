package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e *exitError) ExitCode() int { return e.code }

type fakeRunner struct {
	mu          sync.Mutex
	stdout      []byte
	stderr      []byte
	err         error
	stdoutQueue [][]byte
	stderrQueue [][]byte
	errQueue    []error
	block       bool
	lastName    string
	calls       [][]string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.lastName = name
	f.calls = append(f.calls, append([]string(nil), args...))

	stdout := f.stdout
	stderr := f.stderr
	err := f.err
	if len(f.stdoutQueue) > 0 {
		stdout = f.stdoutQueue[0]
		f.stdoutQueue = f.stdoutQueue[1:]
	}
	if len(f.stderrQueue) > 0 {
		stderr = f.stderrQueue[0]
		f.stderrQueue = f.stderrQueue[1:]
	}
	if len(f.errQueue) > 0 {
		err = f.errQueue[0]
		f.errQueue = f.errQueue[1:]
	}
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, nil, &exitError{code: 9}
	}
	return stdout, stderr, err
}

func (f *fakeRunner) lastArgs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func newTestGateway(r *fakeRunner) *CLIGateway {
	return NewCLIGateway("gogchat", WithRunner(r), WithTimeout(time.Second))
}

func TestFetchSpaces(t *testing.T) {
	r := &fakeRunner{stdout: []byte(`{"spaces":[
		{"name":"spaces/AAAA","displayName":"Team","spaceType":"SPACE","membershipCount":{"joinedDirectHumanUserCount":3,"joinedGroupCount":1},"createTime":"2024-01-02T03:04:05Z"},
		{"name":"spaces/BBBB","spaceType":"DIRECT_MESSAGE"},
		{"name":"spaces/AAAA","displayName":"dup"},
		{"name":""}
	]}`)}
	g := newTestGateway(r)

	spaces, err := g.FetchSpaces(context.Background())
	require.NoError(t, err)
	require.Equal(t, "gogchat", r.lastName)
	require.Equal(t, []string{"spaces", "list", "--all", "--json"}, r.lastArgs())

	require.Len(t, spaces, 2)
	require.Equal(t, "AAAA", spaces[0].ID)
	require.Equal(t, "Team", spaces[0].DisplayName)
	require.Equal(t, models.SpaceTypeRoom, spaces[0].Type)
	require.Equal(t, 4, spaces[0].MemberCount)
	require.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), spaces[0].CreatedAt)
	require.Equal(t, models.SpaceTypeDirectMessage, spaces[1].Type)
}

func TestFetchSpaces_EmptyOutput(t *testing.T) {
	g := newTestGateway(&fakeRunner{stdout: []byte("  \n")})

	spaces, err := g.FetchSpaces(context.Background())
	require.NoError(t, err)
	require.Empty(t, spaces)
}

func TestFetchSpaces_BadJSON(t *testing.T) {
	g := newTestGateway(&fakeRunner{stdout: []byte("{nope")})

	_, err := g.FetchSpaces(context.Background())
	require.Error(t, err)
}

func TestFetchMessages(t *testing.T) {
	r := &fakeRunner{stdout: []byte(`{"messages":[
		{"name":"spaces/AAAA/messages/3","text":"newest","createTime":"2024-01-01T10:00:03Z",
		 "sender":{"name":"users/1","displayName":"Alice"},
		 "emojiReactionSummaries":[{"emoji":{"unicode":"👍"},"reactionCount":2},{"emoji":{"customEmoji":{"uid":"party"}},"reactionCount":1}]},
		{"name":"spaces/AAAA/messages/2","text":"","argumentText":"middle","createTime":"2024-01-01T10:00:02Z","sender":{"name":"users/2"}},
		{"name":"spaces/AAAA/messages/1","text":"oldest","createTime":"2024-01-01T10:00:01Z",
		 "attachment":[{"name":"att/1","contentName":"report.pdf","contentType":"application/pdf","downloadUri":"https://example.com/r"}]}
	]}`)}
	g := newTestGateway(r)

	msgs, err := g.FetchMessages(context.Background(), "AAAA", 5)
	require.NoError(t, err)
	require.Equal(t, []string{
		"messages", "list", "spaces/AAAA", "--json", "--page-size", "5", "--order-by", "createTime desc",
	}, r.lastArgs())

	require.Len(t, msgs, 3)
	require.Equal(t, "oldest", msgs[0].Text)
	require.Equal(t, "middle", msgs[1].Text)
	require.Equal(t, "newest", msgs[2].Text)
	require.Equal(t, "AAAA", msgs[2].SpaceID)
	require.Equal(t, "users/1", msgs[2].SenderID)
	require.Equal(t, "Alice", msgs[2].SenderDisplayName)
	require.Equal(t, []models.Reaction{{Emoji: "👍", Count: 2}, {Emoji: ":party:", Count: 1}}, msgs[2].Reactions)
	require.Equal(t, []models.Attachment{{Name: "report.pdf", ContentType: "application/pdf", URL: "https://example.com/r"}}, msgs[0].Attachments)
}

func TestFetchMessages_OrdersByInstant(t *testing.T) {
	r := &fakeRunner{stdout: []byte(`{"messages":[
		{"name":"spaces/AAAA/messages/3","text":"third","createTime":"2024-01-01T10:00:00.5Z"},
		{"name":"spaces/AAAA/messages/2","text":"second","createTime":"2024-01-01T11:00:00.25+01:00"},
		{"name":"spaces/AAAA/messages/1","text":"first","createTime":"2024-01-01T10:00:00Z"}
	]}`)}
	g := newTestGateway(r)

	msgs, err := g.FetchMessages(context.Background(), "AAAA", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, []string{"first", "second", "third"}, []string{msgs[0].Text, msgs[1].Text, msgs[2].Text})
}

func TestCreatedBefore(t *testing.T) {
	require.True(t, createdBefore("2024-01-01T10:00:00Z", "2024-01-01T10:00:00.5Z"))
	require.False(t, createdBefore("2024-01-01T10:00:00.5Z", "2024-01-01T10:00:00Z"))
	require.False(t, createdBefore("2024-01-01T10:00:00Z", "2024-01-01T10:00:00Z"))
	require.True(t, createdBefore("a", "b"))
}

func TestFetchMessages_InvalidLimit(t *testing.T) {
	r := &fakeRunner{}
	g := newTestGateway(r)

	_, err := g.FetchMessages(context.Background(), "AAAA", 0)
	require.Error(t, err)
	require.Empty(t, r.calls)
}

func TestFetchMembers(t *testing.T) {
	r := &fakeRunner{stdout: []byte(`{"memberships":[
		{"name":"spaces/AAAA/members/1","member":{"name":"users/1","displayName":"Alice"}},
		{"name":"spaces/AAAA/members/2","member":{"name":"users/2"}},
		{"name":"spaces/AAAA/members/3","member":{}}
	]}`)}
	g := newTestGateway(r)

	members, err := g.FetchMembers(context.Background(), "spaces/AAAA")
	require.NoError(t, err)
	require.Equal(t, []string{"members", "list", "spaces/AAAA", "--all", "--json"}, r.lastArgs())
	require.Equal(t, []models.Member{
		{UserID: "users/1", DisplayName: "Alice"},
		{UserID: "users/2"},
	}, members)
}

func TestReadState(t *testing.T) {
	r := &fakeRunner{stdoutQueue: [][]byte{
		[]byte(`{"name":"users/me/spaces/AAAA/spaceReadState","lastReadTime":"2024-01-01T10:00:00Z"}`),
		[]byte(`{"name":"users/me/spaces/BBBB/spaceReadState"}`),
	}}
	g := newTestGateway(r)

	lastRead, ok, err := g.FetchReadState(context.Background(), "AAAA")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2024-01-01T10:00:00Z", lastRead)
	require.Equal(t, []string{"readstate", "get-space", "users/me/spaces/AAAA/spaceReadState", "--json"}, r.lastArgs())

	_, ok, err = g.FetchReadState(context.Background(), "BBBB")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, g.SubmitReadState(context.Background(), "AAAA", "2024-01-02T00:00:00Z"))
	require.Equal(t, []string{
		"readstate", "update-space", "users/me/spaces/AAAA/spaceReadState",
		"--last-read-time", "2024-01-02T00:00:00Z", "--json",
	}, r.lastArgs())

	require.Error(t, g.SubmitReadState(context.Background(), "AAAA", ""))
}

func TestMutations(t *testing.T) {
	r := &fakeRunner{}
	g := newTestGateway(r)
	ctx := context.Background()

	require.NoError(t, g.SendMessage(ctx, "AAAA", "hello"))
	require.Equal(t, []string{"messages", "send", "spaces/AAAA", "--text", "hello"}, r.lastArgs())

	require.NoError(t, g.EditMessage(ctx, "spaces/AAAA/messages/1", "fixed"))
	require.Equal(t, []string{"messages", "update", "spaces/AAAA/messages/1", "--text", "fixed", "--json"}, r.lastArgs())

	require.NoError(t, g.DeleteMessage(ctx, "spaces/AAAA/messages/1"))
	require.Equal(t, []string{"messages", "delete", "spaces/AAAA/messages/1", "--json"}, r.lastArgs())

	require.NoError(t, g.React(ctx, "spaces/AAAA/messages/1", "🎉"))
	require.Equal(t, []string{"reactions", "create", "spaces/AAAA/messages/1", "--emoji", "🎉", "--json"}, r.lastArgs())

	calls := len(r.calls)
	require.Error(t, g.SendMessage(ctx, "AAAA", "   "))
	require.Error(t, g.React(ctx, "spaces/AAAA/messages/1", ""))
	require.Len(t, r.calls, calls, "validation failures never reach gogchat")
}

func TestRun_ExecError(t *testing.T) {
	r := &fakeRunner{
		err:    &exitError{code: 2},
		stderr: []byte("error: space not found\nmore detail"),
	}
	g := newTestGateway(r)

	_, err := g.FetchSpaces(context.Background())
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrAuth))

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "spaces list", execErr.Command)
	require.Equal(t, 2, execErr.ExitCode)
	require.Equal(t, "gogchat error: error: space not found", Describe(err))
}

func TestRun_AuthError(t *testing.T) {
	r := &fakeRunner{
		err:    &exitError{code: 1},
		stderr: []byte("oauth2: token expired ya29.abcdefghijklmnopqrstuvwxyz0123"),
	}
	g := newTestGateway(r)

	_, err := g.FetchSpaces(context.Background())
	require.ErrorIs(t, err, ErrAuth)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	require.NotContains(t, execErr.Stderr, "ya29.abcdefghijklmnopqrstuvwxyz0123")
	require.Contains(t, Describe(err), "gogchat auth login")
}

func TestRun_BinaryMissing(t *testing.T) {
	g := newTestGateway(&fakeRunner{err: exec.ErrNotFound})

	_, err := g.FetchSpaces(context.Background())
	require.ErrorIs(t, err, ErrBinaryNotFound)
	require.Contains(t, Describe(err), "not found")
}

func TestRun_Timeout(t *testing.T) {
	r := &fakeRunner{block: true}
	g := NewCLIGateway("gogchat", WithRunner(r), WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, _, err := g.FetchReadState(context.Background(), "AAAA")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Contains(t, Describe(err), "timed out")
}

func TestRun_RedactsTextInLogsOnly(t *testing.T) {
	r := &fakeRunner{err: &exitError{code: 1}, stderr: []byte("boom")}
	g := newTestGateway(r)

	err := g.SendMessage(context.Background(), "AAAA", "secret plans")
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	require.NotContains(t, strings.Join(execErr.Args, " "), "secret plans")
	require.Equal(t, "secret plans", r.lastArgs()[4], "gogchat still receives the real text")
}

func TestIsAuthFailure(t *testing.T) {
	for _, stderr := range []string{
		"Error 401: Unauthorized",
		"403 forbidden",
		"please run login",
		"UNAUTHENTICATED",
		"invalid credentials",
	} {
		require.True(t, IsAuthFailure(stderr), stderr)
	}
	require.False(t, IsAuthFailure("space not found"))
	require.False(t, IsAuthFailure(""))
}

func TestCommandName(t *testing.T) {
	require.Equal(t, "spaces list", commandName([]string{"spaces", "list", "--all"}))
	require.Equal(t, "messages send", commandName([]string{"messages", "send", "spaces/X", "--text", "x"}))
	require.Equal(t, "auth", commandName([]string{"auth", "--json"}))
}

func TestFindBinary(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "gogchat")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	origLook, origExe := lookPath, executable
	t.Cleanup(func() { lookPath, executable = origLook, origExe })

	lookPath = func(string) (string, error) { return "/usr/bin/gogchat", nil }
	path, err := FindBinary("")
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/gogchat", path)

	lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	executable = func() (string, error) { return filepath.Join(dir, "sub", "gchat-tui"), nil }
	path, err = FindBinary("gogchat")
	require.NoError(t, err)
	require.Equal(t, bin, path)

	path, err = FindBinary(bin)
	require.NoError(t, err)
	require.Equal(t, bin, path)

	executable = func() (string, error) { return filepath.Join(t.TempDir(), "gchat-tui"), nil }
	err = CheckBinary("gogchat")
	require.ErrorIs(t, err, ErrBinaryNotFound)

	_, err = FindBinary(filepath.Join(dir, "missing"))
	require.ErrorIs(t, err, ErrBinaryNotFound)
}
