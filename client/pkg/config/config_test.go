package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ARENA_DIR", dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ArenaDir != dir {
		t.Errorf("Expected ArenaDir %s, got %s", dir, cfg.ArenaDir)
	}
	if cfg.Chat.PollInterval.Duration() != 200*time.Millisecond {
		t.Errorf("Expected 200ms poll interval, got %v", cfg.Chat.PollInterval.Duration())
	}
	if cfg.Chat.Timeout.Duration() != 60*time.Second {
		t.Errorf("Expected 60s timeout, got %v", cfg.Chat.Timeout.Duration())
	}
	if cfg.History.Path != filepath.Join(dir, "history.db") {
		t.Errorf("Unexpected history path %s", cfg.History.Path)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ARENA_DIR", dir)
	path := filepath.Join(dir, "config.yaml")
	data := `
api_url: http://relay.internal:8080/chatbot
chat:
  poll_interval: 250ms
  timeout: 30s
history:
  enabled: false
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARENA_CHAT_TIMEOUT", "45s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "http://relay.internal:8080/chatbot" {
		t.Errorf("Expected api_url from file, got %s", cfg.APIURL)
	}
	if cfg.Chat.PollInterval.Duration() != 250*time.Millisecond {
		t.Errorf("Expected 250ms from file, got %v", cfg.Chat.PollInterval.Duration())
	}
	if cfg.Chat.Timeout.Duration() != 45*time.Second {
		t.Errorf("Expected env to override file timeout, got %v", cfg.Chat.Timeout.Duration())
	}
	if cfg.History.Enabled {
		t.Error("Expected history disabled from file")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.Log.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
		want string
	}{
		{"bad url", "api_url: ftp://x\n", nil, "ARENA_API_URL"},
		{"zero poll", "chat:\n  poll_interval: 0s\n", nil, "poll_interval"},
		{"timeout below poll", "chat:\n  poll_interval: 2s\n  timeout: 1s\n", nil, "chat.timeout"},
		{"bad level", "log:\n  level: loud\n", nil, "log.level"},
		{"bad duration", "chat:\n  timeout: soon\n", nil, "parse"},
		{"env url", "", map[string]string{"ARENA_API_URL": "not a url"}, "ARENA_API_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv("ARENA_DIR", dir)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(dir, "config.yaml")
			os.WriteFile(path, []byte(tt.yaml), 0644)

			_, err := Load(path)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	os.WriteFile(envFile, []byte("ARENA_TEST_DOTENV=from-file\nARENA_TEST_PRESET=from-file\n"), 0644)

	t.Setenv("ARENA_TEST_PRESET", "from-env")
	// Register cleanup for the variable the file introduces.
	t.Setenv("ARENA_TEST_DOTENV", "")
	os.Unsetenv("ARENA_TEST_DOTENV")

	if err := LoadDotEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("ARENA_TEST_DOTENV"); got != "from-file" {
		t.Errorf("Expected value from .env, got %q", got)
	}
	if got := os.Getenv("ARENA_TEST_PRESET"); got != "from-env" {
		t.Errorf("Expected existing env to win, got %q", got)
	}
}

func TestTemplateParses(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ARENA_DIR", dir)

	path, err := EnsureTemplate()
	if err != nil {
		t.Fatalf("EnsureTemplate failed: %v", err)
	}
	if path != filepath.Join(dir, "config.yaml") {
		t.Errorf("Unexpected template path %s", path)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("Template should load cleanly, got %v", err)
	}
}

func TestGetArenaDir(t *testing.T) {
	t.Setenv("ARENA_DIR", "/tmp/arena-test")
	if got := GetArenaDir(); got != "/tmp/arena-test" {
		t.Errorf("Expected ARENA_DIR override, got %s", got)
	}
	t.Setenv("ARENA_DIR", "")
	if got := GetArenaDir(); !strings.HasSuffix(got, ".arena") {
		t.Errorf("Expected default under home, got %s", got)
	}
}
