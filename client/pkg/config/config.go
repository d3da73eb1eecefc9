// Package config loads arena settings from ARENA_DIR/config.yaml, .env files
// and environment variables, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all client settings.
type Config struct {
	ArenaDir string `yaml:"-"`

	APIURL         string   `yaml:"api_url"`
	RequestTimeout Duration `yaml:"request_timeout"`

	Chat struct {
		PollInterval Duration `yaml:"poll_interval"`
		Timeout      Duration `yaml:"timeout"`
	} `yaml:"chat"`

	History struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"history"`

	Log struct {
		Level string `yaml:"level"`
		Path  string `yaml:"path"`
	} `yaml:"log"`

	UI struct {
		MarkdownStyle string `yaml:"markdown_style"`
		Mouse         bool   `yaml:"mouse"`
	} `yaml:"ui"`
}

// Duration is a time.Duration that can be unmarshaled from strings like "200ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		dur, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			// Bare integers arrive as strings too; treat them as nanoseconds.
			n, nErr := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if nErr != nil {
				return fmt.Errorf("parse duration %q: %w", s, err)
			}
			*d = Duration(n)
			return nil
		}
		*d = Duration(dur)
		return nil
	}
	var n int64
	if err := node.Decode(&n); err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// GetArenaDir returns the directory where arena keeps config, logs and history.
// It uses ARENA_DIR if set, otherwise ~/.arena.
func GetArenaDir() string {
	if dir := os.Getenv("ARENA_DIR"); dir != "" {
		return dir
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".arena")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(GetArenaDir(), "config.yaml")
}

// Default returns the built-in settings rooted at dir.
func Default(dir string) *Config {
	cfg := &Config{ArenaDir: dir}
	cfg.APIURL = "http://localhost:3000/chatbot"
	cfg.RequestTimeout = Duration(30 * time.Second)
	cfg.Chat.PollInterval = Duration(200 * time.Millisecond)
	cfg.Chat.Timeout = Duration(60 * time.Second)
	cfg.History.Enabled = true
	cfg.History.Path = filepath.Join(dir, "history.db")
	cfg.Log.Level = "info"
	cfg.Log.Path = filepath.Join(dir, "logs", "arena.log")
	cfg.UI.MarkdownStyle = "dark"
	cfg.UI.Mouse = true
	return cfg
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads path (ConfigPath() if empty), applies environment overrides and
// validates the result. A missing file means defaults.
func Load(path string) (*Config, error) {
	dir := GetArenaDir()
	cfg := Default(dir)

	if path == "" {
		path = ConfigPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.APIURL = getEnv("ARENA_API_URL", c.APIURL)
	c.RequestTimeout = getEnvDuration("ARENA_REQUEST_TIMEOUT", c.RequestTimeout)
	c.Chat.PollInterval = getEnvDuration("ARENA_POLL_INTERVAL", c.Chat.PollInterval)
	c.Chat.Timeout = getEnvDuration("ARENA_CHAT_TIMEOUT", c.Chat.Timeout)
	c.History.Enabled = getEnvBool("ARENA_HISTORY", c.History.Enabled)
	c.History.Path = getEnv("ARENA_HISTORY_PATH", c.History.Path)
	c.Log.Level = getEnv("ARENA_LOG_LEVEL", c.Log.Level)
	c.Log.Path = getEnv("ARENA_LOG_PATH", c.Log.Path)
	c.UI.MarkdownStyle = getEnv("ARENA_MARKDOWN_STYLE", c.UI.MarkdownStyle)
}

// Validate checks that all required fields are usable.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("ARENA_API_URL cannot be empty")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("ARENA_API_URL must be an http(s) URL, got %q", c.APIURL)
	}
	if c.Chat.PollInterval.Duration() <= 0 {
		return fmt.Errorf("chat.poll_interval must be > 0")
	}
	if c.Chat.Timeout.Duration() < c.Chat.PollInterval.Duration() {
		return fmt.Errorf("chat.timeout must be >= chat.poll_interval")
	}
	if c.RequestTimeout.Duration() <= 0 {
		return fmt.Errorf("request_timeout must be > 0")
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path cannot be empty when history is enabled")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	return nil
}

// Template returns a documented config file.
func Template() string {
	return `# Backend relay base URL (including the /chatbot prefix).
api_url: http://localhost:3000/chatbot

# Per-request HTTP timeout.
request_timeout: 30s

chat:
  # How often a running job is polled, and the total budget per message.
  poll_interval: 200ms
  timeout: 60s

history:
  # Keep a local transcript of every finished job (see: arena history).
  enabled: true
  # path: ~/.arena/history.db

log:
  level: info
  # path: ~/.arena/logs/arena.log

ui:
  # glamour style for agent answers: dark, light, notty, ascii, dracula...
  markdown_style: dark
  mouse: true
`
}

// EnsureTemplate writes the template to ConfigPath if no config exists.
func EnsureTemplate() (string, error) {
	dir := GetArenaDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create arena dir: %w", err)
	}

	configPath := ConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.WriteFile(configPath, []byte(Template()), 0644); err != nil {
			return "", fmt.Errorf("write template: %w", err)
		}
	}
	return configPath, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvDuration(key string, fallback Duration) Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return Duration(d)
}
