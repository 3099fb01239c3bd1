// Package gateway talks to Google Chat through the gogchat CLI.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cipher-shad0w/google-chat-cli/internal/logging"
	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

var (
	// ErrBinaryNotFound indicates the gogchat executable could not be located.
	ErrBinaryNotFound = errors.New("gogchat binary not found")

	// ErrAuth indicates gogchat rejected the stored credentials.
	ErrAuth = errors.New("gogchat authentication failed")
)

// Fetcher reads chat state.
type Fetcher interface {
	FetchSpaces(ctx context.Context) ([]models.Space, error)
	// FetchMessages returns up to limit of the newest messages, oldest first.
	FetchMessages(ctx context.Context, spaceID string, limit int) ([]models.Message, error)
	FetchMembers(ctx context.Context, spaceID string) ([]models.Member, error)
	// FetchReadState returns the space's last-read time. ok is false when
	// the space has never been read.
	FetchReadState(ctx context.Context, spaceID string) (lastRead string, ok bool, err error)
	SubmitReadState(ctx context.Context, spaceID, lastRead string) error
}

// Mutator changes chat state.
type Mutator interface {
	SendMessage(ctx context.Context, spaceID, text string) error
	EditMessage(ctx context.Context, messageName, text string) error
	DeleteMessage(ctx context.Context, messageName string) error
	React(ctx context.Context, messageName, emoji string) error
}

// Gateway is the full remote surface used by the TUI.
type Gateway interface {
	Fetcher
	Mutator
}

// ExecError wraps gogchat failures with exit details. Stderr is redacted.
type ExecError struct {
	Command  string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("gogchat %s failed (exit=%d)", e.Command, e.ExitCode)
	if line := firstLine(e.Stderr); line != "" {
		msg += ": " + line
	}
	return msg
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

var authKeywords = []string{
	"token",
	"auth",
	"credential",
	"login",
	"401",
	"403",
	"oauth",
	"unauthenticated",
}

// IsAuthFailure reports whether gogchat stderr looks like a credentials
// problem.
func IsAuthFailure(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, kw := range authKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Describe turns a gateway error into a short message for the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var execErr *ExecError
	switch {
	case errors.Is(err, ErrBinaryNotFound):
		return "gogchat binary not found. Install it or set gateway.binary"
	case errors.Is(err, ErrAuth):
		return "Authentication expired or missing. Run: gogchat auth login"
	case errors.Is(err, context.DeadlineExceeded):
		return "gogchat timed out, check network connection"
	case errors.As(err, &execErr):
		if line := firstLine(execErr.Stderr); line != "" {
			return "gogchat error: " + line
		}
		return execErr.Error()
	default:
		return logging.Redact(err.Error())
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = strings.TrimSpace(s[:idx])
	}
	return s
}
