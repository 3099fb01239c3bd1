package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cipher-shad0w/google-chat-cli/internal/cache"
	"github.com/cipher-shad0w/google-chat-cli/internal/config"
	"github.com/cipher-shad0w/google-chat-cli/internal/gateway"
	"github.com/cipher-shad0w/google-chat-cli/internal/logging"
	"github.com/cipher-shad0w/google-chat-cli/internal/names"
	"github.com/cipher-shad0w/google-chat-cli/internal/notify"
	"github.com/cipher-shad0w/google-chat-cli/internal/reconcile"
	"github.com/cipher-shad0w/google-chat-cli/internal/unread"
)

// ErrNoTerminal is returned when stdin or stdout is not a terminal.
var ErrNoTerminal = errors.New("gchat-tui needs an interactive terminal")

type runOptions struct {
	configFile   string
	logLevel     string
	logFile      string
	theme        string
	pollInterval time.Duration
	pollSet      bool
	hardRefresh  bool
}

func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:           "gchat-tui",
		Short:         "Google Chat terminal UI",
		Long:          "Bubbletea terminal UI for Google Chat, backed by the gogchat CLI.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.pollSet = cmd.Flags().Changed("poll-interval")
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/gogchat/tui.toml)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level: trace|debug|info|warn|error")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "log file (default is "+logging.DefaultFile()+")")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "theme: dark|light")
	cmd.Flags().DurationVar(&opts.pollInterval, "poll-interval", 0, "message poll interval, 0 disables polling")
	cmd.Flags().BoolVar(&opts.hardRefresh, "hard-refresh", false, "clear the response cache before starting")
	return cmd
}

func run(ctx context.Context, opts runOptions) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return ErrNoTerminal
	}
	if ctx == nil {
		ctx = context.Background()
	}

	loader := config.NewLoader()
	if opts.configFile != "" {
		loader.SetConfigFile(opts.configFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, opts); err != nil {
		return err
	}

	logOut, closeLog := openLog(cfg.Logging.File)
	defer closeLog()
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: logOut,
	})
	logger := logging.Component("main")
	for _, w := range loader.Warnings() {
		logger.Warn().Str("config", loader.ConfigFileUsed()).Msg(w)
	}

	binary, binErr := gateway.FindBinary(cfg.Gateway.Binary)
	if binErr != nil {
		logger.Error().Err(binErr).Msg("gogchat binary not found")
		binary = cfg.Gateway.Binary
	}
	gw := gateway.NewCLIGateway(binary, gateway.WithTimeout(cfg.GatewayTimeout()))

	responses := cache.New(cfg.ResolvedCacheDir(), cfg.MembersTTL())
	if opts.hardRefresh {
		responses.InvalidateAll()
	}

	nameStore := names.Open(names.DefaultPath(config.ConfigDir()))
	sessions := config.NewSessionStore("")
	sess, err := sessions.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring unreadable session")
		sess = &config.Session{}
	}

	notifier := notify.New(cfg.Notifications.Mode)
	bridge := NewBridge()
	ctrl := reconcile.New(reconcile.Config{
		Gateway:      gw,
		Cache:        responses,
		Prober:       unread.NewProber(gw, cfg.Unread.CheckWorkers, cfg.UnreadCheckTimeout()),
		Renderer:     bridge,
		Names:        nameStore,
		Notifier:     notifier,
		PageSize:     cfg.Messages.PageSize,
		PollInterval: cfg.PollInterval(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := nameStore.Watch(ctx); err != nil {
		logger.Warn().Err(err).Str("path", nameStore.Path()).Msg("not watching name overrides")
	}

	model := NewModel(Options{
		Controller: ctrl,
		Names:      nameStore,
		Sessions:   sessions,
		Session:    sess,
		Theme:      cfg.UI.Theme,
		VimMode:    cfg.Keybindings.VimMode,
		Warnings:   loader.Warnings(),
		Startup: func() error {
			if binErr != nil {
				return binErr
			}
			return gw.CheckAuth(ctx)
		},
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	bridge.Attach(program)

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	logger.Info().
		Str("binary", gw.Binary()).
		Str("cache_dir", responses.Store().Root()).
		Str("notifications", notifier.Mode()).
		Msg("starting tui")
	_, err = program.Run()
	cancel()
	if runErr := <-done; runErr != nil && err == nil {
		err = runErr
	}
	return err
}

// applyFlags layers command-line flags over the loaded config.
func applyFlags(cfg *config.Config, opts runOptions) error {
	if opts.logLevel != "" {
		if !logging.ValidLevel(opts.logLevel) {
			return fmt.Errorf("invalid --log-level %q", opts.logLevel)
		}
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFile != "" {
		cfg.Logging.File = opts.logFile
	}
	if opts.theme != "" {
		if _, ok := Themes[opts.theme]; !ok {
			return fmt.Errorf("invalid --theme %q (want one of %v)", opts.theme, ThemeNames())
		}
		cfg.UI.Theme = opts.theme
	}
	if opts.pollSet {
		if opts.pollInterval < 0 {
			return fmt.Errorf("invalid --poll-interval %s", opts.pollInterval)
		}
		cfg.Polling.Interval = opts.pollInterval.Seconds()
	}
	return nil
}

// openLog opens the log file, falling back to discarding logs.
func openLog(path string) (io.Writer, func()) {
	if path == "" {
		path = logging.DefaultFile()
	}
	if path == "" {
		return io.Discard, func() {}
	}
	f, err := logging.OpenFile(path)
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { _ = f.Close() }
}
