package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.AutostartEnabled() {
		t.Fatalf("autostart should default on without base_url")
	}
	if cfg.ServerHostname() != "127.0.0.1" {
		t.Fatalf("unexpected hostname: %q", cfg.ServerHostname())
	}
	if cfg.LogLevel() != "info" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel())
	}
	if cfg.ReadyTimeoutSeconds() != 30 {
		t.Fatalf("unexpected ready timeout: %d", cfg.ReadyTimeoutSeconds())
	}
	if cfg.Chat.DropEventsAfterAbort {
		t.Fatalf("drop_events_after_abort should default off")
	}
}

func TestLoadFromTOML(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)

	dataDir := filepath.Join(home, ".mars")
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := []byte(`
[server]
base_url = "127.0.0.1:4096/"

[chat]
model = "anthropic/claude-sonnet-4"
drop_events_after_abort = true

[logging]
level = "debug"
`)
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerBaseURL() != "http://127.0.0.1:4096" {
		t.Fatalf("unexpected base url: %q", cfg.ServerBaseURL())
	}
	if cfg.AutostartEnabled() {
		t.Fatalf("autostart should default off with base_url set")
	}
	if cfg.Chat.Model != "anthropic/claude-sonnet-4" {
		t.Fatalf("unexpected model: %q", cfg.Chat.Model)
	}
	if !cfg.Chat.DropEventsAfterAbort {
		t.Fatalf("drop_events_after_abort not loaded")
	}
	if cfg.LogLevel() != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel())
	}
}

func TestAutostartExplicitOverride(t *testing.T) {
	enabled := true
	cfg := Default()
	cfg.Server.BaseURL = "http://127.0.0.1:4096"
	cfg.Server.Autostart = &enabled
	if !cfg.AutostartEnabled() {
		t.Fatalf("explicit autostart should win over base_url")
	}
}

func TestResolveLogPath(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)

	cfg := Default()
	path, err := cfg.ResolveLogPath()
	if err != nil {
		t.Fatalf("ResolveLogPath default: %v", err)
	}
	if want := filepath.Join(home, ".mars", "mars.log"); path != want {
		t.Fatalf("unexpected default path: got=%q want=%q", path, want)
	}

	cfg.Logging.Path = "logs/client.log"
	path, err = cfg.ResolveLogPath()
	if err != nil {
		t.Fatalf("ResolveLogPath relative: %v", err)
	}
	if want := filepath.Join(home, ".mars", "logs", "client.log"); path != want {
		t.Fatalf("unexpected relative path: got=%q want=%q", path, want)
	}

	cfg.Logging.Path = "~/custom.log"
	path, err = cfg.ResolveLogPath()
	if err != nil {
		t.Fatalf("ResolveLogPath home-relative: %v", err)
	}
	if want := filepath.Join(home, "custom.log"); path != want {
		t.Fatalf("unexpected home path: got=%q want=%q", path, want)
	}
}
