package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/cipher-shad0w/google-chat-cli/internal/logging"
)

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
	searchDirs []string
	warnings   []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:          viper.New(),
		searchDirs: []string{ConfigDir()},
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// SetSearchDirs replaces the directories searched for tui.toml.
func (l *Loader) SetSearchDirs(dirs ...string) {
	l.searchDirs = dirs
}

// Warnings returns the problems found in the last Load. Each one names a
// key whose value was rejected and replaced by its default.
func (l *Loader) Warnings() []string {
	return append([]string(nil), l.warnings...)
}

// Load loads configuration with proper precedence:
// defaults < config file < env vars. CLI flags are applied by the caller.
//
// Individual invalid values do not fail the load; they fall back to the
// default and are reported through Warnings.
func (l *Loader) Load() (*Config, error) {
	l.warnings = nil
	defaults := DefaultConfig()

	l.setupViper(defaults)

	if err := l.loadConfigFile(); err != nil {
		if l.configFile != "" {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		l.warn("failed to read config file: %v; using defaults", err)
	}

	cfg := l.resolve(defaults)
	cfg.Cache.Dir = expandTilde(cfg.Cache.Dir)
	cfg.Logging.File = expandTilde(cfg.Logging.File)
	return cfg, nil
}

// ConfigFileUsed returns the config file that was loaded.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	v.SetConfigName("tui")
	v.SetConfigType("toml")
	for _, dir := range l.searchDirs {
		if dir != "" {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix("GCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	l.setDefaults(cfg)
	bindEnvVars(v)
	v.AutomaticEnv()
}

func (l *Loader) setDefaults(cfg *Config) {
	v := l.v

	v.SetDefault("polling.interval", cfg.Polling.Interval)
	v.SetDefault("messages.page_size", cfg.Messages.PageSize)
	v.SetDefault("cache.members_ttl", cfg.Cache.MembersTTL)
	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("unread.check_workers", cfg.Unread.CheckWorkers)
	v.SetDefault("unread.check_timeout", cfg.Unread.CheckTimeout)
	v.SetDefault("keybindings.vim_mode", cfg.Keybindings.VimMode)
	v.SetDefault("notifications.mode", cfg.Notifications.Mode)
	v.SetDefault("ui.theme", cfg.UI.Theme)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("gateway.binary", cfg.Gateway.Binary)
	v.SetDefault("gateway.timeout", cfg.Gateway.Timeout)
}

func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// resolve reads every key individually so one bad value only costs that
// value, not the whole file.
func (l *Loader) resolve(d *Config) *Config {
	cfg := *d

	cfg.Polling.Interval = l.floatKey("polling.interval", d.Polling.Interval, nonNegative, "must be >= 0")
	cfg.Messages.PageSize = l.intKey("messages.page_size", d.Messages.PageSize, positive, "must be int > 0")
	cfg.Cache.MembersTTL = l.floatKey("cache.members_ttl", d.Cache.MembersTTL, nonNegative, "must be >= 0")
	cfg.Cache.Dir = l.stringKey("cache.dir", d.Cache.Dir, anyString, "")
	cfg.Unread.CheckWorkers = l.intKey("unread.check_workers", d.Unread.CheckWorkers, positive, "must be int > 0")
	cfg.Unread.CheckTimeout = l.floatKey("unread.check_timeout", d.Unread.CheckTimeout, positiveFloat, "must be > 0")
	cfg.Keybindings.VimMode = l.boolKey("keybindings.vim_mode", d.Keybindings.VimMode)
	cfg.Notifications.Mode = l.stringKey("notifications.mode", d.Notifications.Mode, validNotifyMode,
		"must be one of off, bell, desktop, both")
	cfg.UI.Theme = l.stringKey("ui.theme", d.UI.Theme, nonEmpty, "must be non-empty string")
	cfg.Logging.Level = l.stringKey("logging.level", d.Logging.Level, logging.ValidLevel, "must be one of trace, debug, info, warn, error")
	cfg.Logging.Format = l.stringKey("logging.format", d.Logging.Format, validFormat, "must be json or console")
	cfg.Logging.File = l.stringKey("logging.file", d.Logging.File, anyString, "")
	cfg.Gateway.Binary = l.stringKey("gateway.binary", d.Gateway.Binary, nonEmpty, "must be non-empty string")
	cfg.Gateway.Timeout = l.floatKey("gateway.timeout", d.Gateway.Timeout, positiveFloat, "must be > 0")

	return &cfg
}

func (l *Loader) floatKey(key string, def float64, ok func(float64) bool, rule string) float64 {
	raw := l.v.Get(key)
	if _, isBool := raw.(bool); isBool {
		l.warn("invalid %s=%v (%s), using default %v", key, raw, rule, def)
		return def
	}
	val, err := cast.ToFloat64E(raw)
	if err != nil || !ok(val) {
		l.warn("invalid %s=%v (%s), using default %v", key, raw, rule, def)
		return def
	}
	return val
}

func (l *Loader) intKey(key string, def int, ok func(int) bool, rule string) int {
	raw := l.v.Get(key)
	switch raw.(type) {
	case bool, float32, float64:
		// TOML floats such as 2.5 are not silently truncated.
		if f, isFloat := raw.(float64); !isFloat || f != float64(int(f)) {
			l.warn("invalid %s=%v (%s), using default %d", key, raw, rule, def)
			return def
		}
	}
	val, err := cast.ToIntE(raw)
	if err != nil || !ok(val) {
		l.warn("invalid %s=%v (%s), using default %d", key, raw, rule, def)
		return def
	}
	return val
}

func (l *Loader) boolKey(key string, def bool) bool {
	raw := l.v.Get(key)
	val, err := cast.ToBoolE(raw)
	if err != nil {
		l.warn("invalid %s=%v (must be bool), using default %v", key, raw, def)
		return def
	}
	return val
}

func (l *Loader) stringKey(key string, def string, ok func(string) bool, rule string) string {
	raw := l.v.Get(key)
	val, isString := raw.(string)
	if !isString || !ok(strings.TrimSpace(val)) {
		l.warn("invalid %s=%v (%s), using default %q", key, raw, rule, def)
		return def
	}
	return strings.TrimSpace(val)
}

func (l *Loader) warn(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func nonNegative(f float64) bool   { return f >= 0 }
func positiveFloat(f float64) bool { return f > 0 }
func positive(i int) bool          { return i > 0 }
func nonEmpty(s string) bool       { return s != "" }
func anyString(string) bool        { return true }

func validNotifyMode(s string) bool {
	switch s {
	case NotifyOff, NotifyBell, NotifyDesktop, NotifyBoth:
		return true
	}
	return false
}

func validFormat(s string) bool {
	return s == "json" || s == "console"
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, []string, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	cfg, err := loader.Load()
	return cfg, loader.Warnings(), err
}

// bindEnvVars binds GCHAT_* environment variables for config keys.
// Viper only resolves env vars for nested keys when they are bound.
func bindEnvVars(v *viper.Viper) {
	envBindings := []string{
		"polling.interval",
		"messages.page_size",
		"cache.members_ttl",
		"cache.dir",
		"unread.check_workers",
		"unread.check_timeout",
		"keybindings.vim_mode",
		"notifications.mode",
		"ui.theme",
		"logging.level",
		"logging.format",
		"logging.file",
		"gateway.binary",
		"gateway.timeout",
	}

	for _, key := range envBindings {
		envVar := "GCHAT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, envVar)
	}
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
