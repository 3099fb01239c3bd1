package gateway

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cipher-shad0w/google-chat-cli/internal/logging"
	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

// DefaultTimeout bounds a single gogchat invocation.
const DefaultTimeout = 60 * time.Second

// CLIGateway implements Gateway by running the gogchat binary.
type CLIGateway struct {
	binary  string
	runner  Runner
	timeout time.Duration
	logger  zerolog.Logger
}

// Option configures a CLIGateway.
type Option func(*CLIGateway)

// WithRunner overrides how gogchat is executed.
func WithRunner(r Runner) Option {
	return func(g *CLIGateway) {
		if r != nil {
			g.runner = r
		}
	}
}

// WithTimeout sets the per-invocation timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(g *CLIGateway) {
		g.timeout = d
	}
}

// NewCLIGateway creates a gateway running the given gogchat binary.
func NewCLIGateway(binary string, opts ...Option) *CLIGateway {
	g := &CLIGateway{
		binary:  binary,
		runner:  ExecRunner{},
		timeout: DefaultTimeout,
		logger:  logging.Component("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Binary returns the gogchat path in use.
func (g *CLIGateway) Binary() string {
	return g.binary
}

// FetchSpaces lists every space the user belongs to.
func (g *CLIGateway) FetchSpaces(ctx context.Context) ([]models.Space, error) {
	out, err := g.run(ctx, "spaces", "list", "--all", "--json")
	if err != nil {
		return nil, err
	}
	return decodeSpaces(out)
}

// FetchMessages returns the newest limit messages of a space, oldest first.
func (g *CLIGateway) FetchMessages(ctx context.Context, spaceID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("page size must be > 0, got %d", limit)
	}
	name := models.SpaceResourceName(spaceID)
	out, err := g.run(ctx, "messages", "list", name,
		"--json",
		"--page-size", strconv.Itoa(limit),
		"--order-by", "createTime desc",
	)
	if err != nil {
		return nil, err
	}
	return decodeMessages(out, models.SpaceID(name))
}

// FetchMembers lists the human members of a space.
func (g *CLIGateway) FetchMembers(ctx context.Context, spaceID string) ([]models.Member, error) {
	out, err := g.run(ctx, "members", "list", models.SpaceResourceName(spaceID), "--all", "--json")
	if err != nil {
		return nil, err
	}
	return decodeMembers(out)
}

// FetchReadState returns the caller's last-read time for a space.
func (g *CLIGateway) FetchReadState(ctx context.Context, spaceID string) (string, bool, error) {
	out, err := g.run(ctx, "readstate", "get-space", readStateName(spaceID), "--json")
	if err != nil {
		return "", false, err
	}
	return decodeReadState(out)
}

// SubmitReadState marks a space read up to lastRead.
func (g *CLIGateway) SubmitReadState(ctx context.Context, spaceID, lastRead string) error {
	if strings.TrimSpace(lastRead) == "" {
		return errors.New("last read time is required")
	}
	_, err := g.run(ctx, "readstate", "update-space", readStateName(spaceID),
		"--last-read-time", lastRead,
		"--json",
	)
	return err
}

// SendMessage posts text to a space.
func (g *CLIGateway) SendMessage(ctx context.Context, spaceID, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("message text is required")
	}
	_, err := g.run(ctx, "messages", "send", models.SpaceResourceName(spaceID), "--text", text)
	return err
}

// EditMessage replaces the text of a message.
func (g *CLIGateway) EditMessage(ctx context.Context, messageName, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("message text is required")
	}
	_, err := g.run(ctx, "messages", "update", messageName, "--text", text, "--json")
	return err
}

// DeleteMessage removes a message.
func (g *CLIGateway) DeleteMessage(ctx context.Context, messageName string) error {
	_, err := g.run(ctx, "messages", "delete", messageName, "--json")
	return err
}

// React adds an emoji reaction to a message.
func (g *CLIGateway) React(ctx context.Context, messageName, emoji string) error {
	if strings.TrimSpace(emoji) == "" {
		return errors.New("emoji is required")
	}
	_, err := g.run(ctx, "reactions", "create", messageName, "--emoji", emoji, "--json")
	return err
}

// CheckAuth performs the cheapest authenticated call to verify credentials.
func (g *CLIGateway) CheckAuth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, authCheckTimeout)
	defer cancel()
	_, err := g.run(ctx, "spaces", "list", "--json", "--page-size", "1")
	return err
}

const authCheckTimeout = 15 * time.Second

func readStateName(spaceID string) string {
	return "users/me/" + models.SpaceResourceName(spaceID) + "/spaceReadState"
}

func (g *CLIGateway) run(ctx context.Context, args ...string) ([]byte, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	command := commandName(args)
	logger := g.logger.With().
		Str("request_id", uuid.NewString()).
		Str("command", command).
		Logger()
	logger.Debug().Strs("args", logging.RedactArgs(args)).Msg("running gogchat")

	start := time.Now()
	stdout, stderr, err := g.runner.Run(ctx, g.binary, args...)
	elapsed := time.Since(start)
	if err == nil {
		logger.Debug().Dur("duration", elapsed).Int("bytes", len(stdout)).Msg("gogchat finished")
		return stdout, nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		logger.Error().Err(err).Msg("gogchat binary missing")
		return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, g.binary)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Warn().Err(ctxErr).Dur("duration", elapsed).Msg("gogchat interrupted")
		return nil, fmt.Errorf("gogchat %s: %w", command, ctxErr)
	}

	execErr := &ExecError{
		Command:  command,
		Args:     logging.RedactArgs(args),
		ExitCode: -1,
		Stderr:   logging.Redact(strings.TrimSpace(string(stderr))),
		Err:      err,
	}
	var coder exitCoder
	if errors.As(err, &coder) {
		execErr.ExitCode = coder.ExitCode()
	}

	logger.Warn().
		Int("exit_code", execErr.ExitCode).
		Str("stderr", execErr.Stderr).
		Dur("duration", elapsed).
		Msg("gogchat failed")

	if IsAuthFailure(execErr.Stderr) {
		return nil, fmt.Errorf("%w: %w", ErrAuth, execErr)
	}
	return nil, execErr
}

func commandName(args []string) string {
	parts := make([]string, 0, 2)
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") || len(parts) == 2 {
			break
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

var _ Gateway = (*CLIGateway)(nil)
