package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".mars"

// DataDir returns the base data directory for Mars.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the path to the main configuration file.
func ConfigPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "config.toml"), nil
}

// RecentsDBPath returns the path to the recent-sessions database.
func RecentsDBPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "recents.db"), nil
}

// LogPath returns the path to the client log file.
func LogPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "mars.log"), nil
}

// ServerLogPath returns the path to the managed server's log file.
func ServerLogPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "opencode.log"), nil
}
