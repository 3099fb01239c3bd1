// Package config handles gchat-tui configuration loading and validation.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Notification modes.
const (
	NotifyOff     = "off"
	NotifyBell    = "bell"
	NotifyDesktop = "desktop"
	NotifyBoth    = "both"
)

// Config is the root configuration structure, read from tui.toml.
type Config struct {
	Polling       PollingConfig      `mapstructure:"polling"`
	Messages      MessagesConfig     `mapstructure:"messages"`
	Cache         CacheConfig        `mapstructure:"cache"`
	Unread        UnreadConfig       `mapstructure:"unread"`
	Keybindings   KeybindingsConfig  `mapstructure:"keybindings"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	UI            UIConfig           `mapstructure:"ui"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Gateway       GatewayConfig      `mapstructure:"gateway"`
}

// PollingConfig controls the message poll timer.
type PollingConfig struct {
	// Interval is the number of seconds between polls of the focused
	// space. 0 disables polling.
	Interval float64 `mapstructure:"interval"`
}

// MessagesConfig controls message fetching.
type MessagesConfig struct {
	// PageSize is the number of messages fetched per space.
	PageSize int `mapstructure:"page_size"`
}

// CacheConfig controls the on-disk response cache.
type CacheConfig struct {
	// MembersTTL is how long (seconds) a cached member list stays valid.
	MembersTTL float64 `mapstructure:"members_ttl"`

	// Dir overrides the platform cache directory.
	Dir string `mapstructure:"dir"`
}

// UnreadConfig controls the unread-state prober.
type UnreadConfig struct {
	// CheckWorkers is the size of the prober's worker pool.
	CheckWorkers int `mapstructure:"check_workers"`

	// CheckTimeout bounds one space's check, in seconds.
	CheckTimeout float64 `mapstructure:"check_timeout"`
}

// KeybindingsConfig contains key handling options.
type KeybindingsConfig struct {
	VimMode bool `mapstructure:"vim_mode"`
}

// NotificationConfig controls new-message alerts.
type NotificationConfig struct {
	// Mode is one of off, bell, desktop, both.
	Mode string `mapstructure:"mode"`
}

// UIConfig contains display settings.
type UIConfig struct {
	Theme string `mapstructure:"theme"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `mapstructure:"format"`

	// File is the log file path. The TUI owns the terminal so logs never
	// go to stderr.
	File string `mapstructure:"file"`
}

// GatewayConfig controls how the gogchat binary is invoked.
type GatewayConfig struct {
	// Binary is the gogchat executable name or path.
	Binary string `mapstructure:"binary"`

	// Timeout bounds a single gogchat invocation, in seconds.
	Timeout float64 `mapstructure:"timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Polling:       PollingConfig{Interval: 15},
		Messages:      MessagesConfig{PageSize: 25},
		Cache:         CacheConfig{MembersTTL: 3600},
		Unread:        UnreadConfig{CheckWorkers: 8, CheckTimeout: 20},
		Keybindings:   KeybindingsConfig{VimMode: false},
		Notifications: NotificationConfig{Mode: NotifyOff},
		UI:            UIConfig{Theme: "dark"},
		Logging:       LoggingConfig{Level: "info", Format: "json"},
		Gateway:       GatewayConfig{Binary: "gogchat", Timeout: 60},
	}
}

// PollInterval returns the poll interval; 0 means polling is disabled.
func (c *Config) PollInterval() time.Duration {
	return seconds(c.Polling.Interval)
}

// MembersTTL returns the members cache TTL.
func (c *Config) MembersTTL() time.Duration {
	return seconds(c.Cache.MembersTTL)
}

// UnreadCheckTimeout returns the per-space prober timeout.
func (c *Config) UnreadCheckTimeout() time.Duration {
	return seconds(c.Unread.CheckTimeout)
}

// GatewayTimeout returns the per-invocation gogchat timeout.
func (c *Config) GatewayTimeout() time.Duration {
	return seconds(c.Gateway.Timeout)
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

// ConfigDir returns the gogchat configuration directory
// ($XDG_CONFIG_HOME/gogchat or ~/.config/gogchat).
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gogchat")
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "gogchat")
}

// CacheDir returns the platform cache directory for gogchat:
// ~/Library/Caches/gogchat on macOS, otherwise $XDG_CACHE_HOME/gogchat or
// ~/.cache/gogchat. Nothing is created.
func CacheDir() string {
	homeDir, _ := os.UserHomeDir()
	if runtime.GOOS == "darwin" {
		return filepath.Join(homeDir, "Library", "Caches", "gogchat")
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "gogchat")
	}
	return filepath.Join(homeDir, ".cache", "gogchat")
}

// ResolvedCacheDir returns the configured cache directory or the platform
// default.
func (c *Config) ResolvedCacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return CacheDir()
}
