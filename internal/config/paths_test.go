package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestPaths(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))

	dataDir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	if !strings.HasSuffix(dataDir, ".mars") {
		t.Fatalf("unexpected data dir: %s", dataDir)
	}

	configPath, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if !strings.HasSuffix(configPath, filepath.Join(".mars", "config.toml")) {
		t.Fatalf("unexpected config path: %s", configPath)
	}

	recentsPath, err := RecentsDBPath()
	if err != nil {
		t.Fatalf("RecentsDBPath: %v", err)
	}
	if !strings.HasSuffix(recentsPath, filepath.Join(".mars", "recents.db")) {
		t.Fatalf("unexpected recents path: %s", recentsPath)
	}

	logPath, err := LogPath()
	if err != nil {
		t.Fatalf("LogPath: %v", err)
	}
	if !strings.HasSuffix(logPath, filepath.Join(".mars", "mars.log")) {
		t.Fatalf("unexpected log path: %s", logPath)
	}

	serverLogPath, err := ServerLogPath()
	if err != nil {
		t.Fatalf("ServerLogPath: %v", err)
	}
	if !strings.HasSuffix(serverLogPath, filepath.Join(".mars", "opencode.log")) {
		t.Fatalf("unexpected server log path: %s", serverLogPath)
	}
}
