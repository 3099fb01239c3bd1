// Package notify alerts the user when spaces receive new messages.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cipher-shad0w/google-chat-cli/internal/config"
	"github.com/cipher-shad0w/google-chat-cli/internal/gateway"
	"github.com/cipher-shad0w/google-chat-cli/internal/logging"
	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

const (
	appName        = "gchat"
	commandTimeout = 5 * time.Second
)

// Notifier sends terminal bells and desktop notifications according to the
// configured mode.
type Notifier struct {
	mode   string
	goos   string
	bell   io.Writer
	runner gateway.Runner
	logger zerolog.Logger

	mu sync.Mutex
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithBellWriter sets where the bell character is written.
func WithBellWriter(w io.Writer) Option {
	return func(n *Notifier) { n.bell = w }
}

// WithRunner overrides how desktop notification commands run.
func WithRunner(r gateway.Runner) Option {
	return func(n *Notifier) { n.runner = r }
}

// WithOS overrides the detected operating system.
func WithOS(goos string) Option {
	return func(n *Notifier) { n.goos = goos }
}

// New creates a notifier for mode (off, bell, desktop, both).
func New(mode string, opts ...Option) *Notifier {
	n := &Notifier{
		mode:   mode,
		goos:   runtime.GOOS,
		bell:   os.Stdout,
		runner: gateway.ExecRunner{},
		logger: logging.Component("notify"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Mode returns the configured mode.
func (n *Notifier) Mode() string {
	return n.mode
}

// NotifyUnread alerts about spaces that just became unread.
func (n *Notifier) NotifyUnread(ctx context.Context, spaces []models.Space) error {
	if len(spaces) == 0 {
		return nil
	}
	title, body := summarize(spaces)
	return n.Send(ctx, title, body)
}

// Send delivers one notification. Desktop failures are logged and
// returned; they never affect the bell.
func (n *Notifier) Send(ctx context.Context, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var err error
	if n.mode == config.NotifyBell || n.mode == config.NotifyBoth {
		if _, werr := io.WriteString(n.bell, "\a"); werr != nil {
			n.logger.Debug().Err(werr).Msg("bell failed")
		}
	}
	if n.mode == config.NotifyDesktop || n.mode == config.NotifyBoth {
		err = n.desktop(ctx, title, body)
		if err != nil {
			n.logger.Debug().Err(err).Msg("desktop notification failed")
		}
	}
	return err
}

func (n *Notifier) desktop(ctx context.Context, title, body string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	switch n.goos {
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s" subtitle "%s"`,
			escapeAppleScript(body), appName, escapeAppleScript(title))
		_, _, err := n.runner.Run(ctx, "osascript", "-e", script)
		return err
	case "linux", "freebsd", "openbsd", "netbsd":
		_, _, err := n.runner.Run(ctx, "notify-send", "--app-name="+appName, title, body)
		return err
	default:
		return fmt.Errorf("desktop notifications not supported on %s", n.goos)
	}
}

func summarize(spaces []models.Space) (title, body string) {
	if len(spaces) == 1 {
		return spaces[0].Title(), "New messages"
	}
	names := make([]string, 0, len(spaces))
	for _, s := range spaces {
		names = append(names, s.Title())
	}
	return fmt.Sprintf("%d spaces", len(spaces)), "New messages in " + strings.Join(names, ", ")
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
