package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jdelaire/relaybot/core"
)

const (
	// DefaultPath is the config file read when --config is not given.
	DefaultPath = "relaybot.yml"
	// TokenEnv names the environment variable holding the bot token.
	TokenEnv = "TOKEN"

	envPrefix = "RELAYBOT_"
)

// ErrMissingToken is returned when no bot token can be found.
var ErrMissingToken = errors.New("bot token not set: export " + TokenEnv + " or run `relaybot token set`")

// Config holds runtime settings. The token is resolved separately so it
// never lives in a config file.
type Config struct {
	BaseURL          string        `koanf:"base_url" yaml:"base_url"`
	PollTimeout      int           `koanf:"poll_timeout" yaml:"poll_timeout"`
	RetryPause       time.Duration `koanf:"retry_pause" yaml:"retry_pause"`
	QueueSize        int           `koanf:"queue_size" yaml:"queue_size"`
	HandlerTimeout   time.Duration `koanf:"handler_timeout" yaml:"handler_timeout"`
	JournalPath      string        `koanf:"journal_path" yaml:"journal_path"`
	StatusAddr       string        `koanf:"status_addr" yaml:"status_addr"`
	VideoPath        string        `koanf:"video_path" yaml:"video_path"`
	AllowedChats     []int64       `koanf:"allowed_chats" yaml:"allowed_chats"`
	LogLevel         string        `koanf:"log_level" yaml:"log_level"`
	RegisterCommands bool          `koanf:"register_commands" yaml:"register_commands"`
	RateLimit        int           `koanf:"rate_limit" yaml:"rate_limit"`
	RateWindow       time.Duration `koanf:"rate_window" yaml:"rate_window"`
	RateLockout      time.Duration `koanf:"rate_lockout" yaml:"rate_lockout"`
	WatchInterval    time.Duration `koanf:"watch_interval" yaml:"watch_interval"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		BaseURL:          core.DefaultBaseURL,
		PollTimeout:      30,
		RetryPause:       time.Second,
		QueueSize:        core.DefaultQueueSize,
		HandlerTimeout:   60 * time.Second,
		JournalPath:      "relaybot.db",
		LogLevel:         "info",
		RegisterCommands: true,
		RateWindow:       time.Minute,
		RateLockout:      time.Minute,
		WatchInterval:    2 * time.Second,
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (RELAYBOT_*). A missing file leaves the
// defaults in place.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// LoadDotenv exports variables from a .env file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("poll_timeout must be positive")
	}
	if c.RetryPause < 0 {
		return fmt.Errorf("retry_pause must be non-negative")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive")
	}
	if c.HandlerTimeout < 0 {
		return fmt.Errorf("handler_timeout must be non-negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be non-negative")
	}
	if c.RateLimit > 0 && (c.RateWindow <= 0 || c.RateLockout <= 0) {
		return fmt.Errorf("rate_window and rate_lockout must be positive when rate_limit is set")
	}
	if c.WatchInterval < 0 {
		return fmt.Errorf("watch_interval must be non-negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", s)
	}
	return level, nil
}

// TokenSources supplies the places a token may come from.
type TokenSources struct {
	Env      func(string) string
	Keychain func() (string, error)
}

// ResolveToken returns the bot token from the environment, falling back to
// the keychain. It returns ErrMissingToken when neither has one.
func ResolveToken(src TokenSources) (string, error) {
	if src.Env != nil {
		if tok := strings.TrimSpace(src.Env(TokenEnv)); tok != "" {
			return tok, nil
		}
	}
	if src.Keychain != nil {
		tok, err := src.Keychain()
		if err == nil && strings.TrimSpace(tok) != "" {
			return strings.TrimSpace(tok), nil
		}
	}
	return "", ErrMissingToken
}
