package config

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultHostname     = "127.0.0.1"
	defaultReadyTimeout = 30
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Chat    ChatConfig    `toml:"chat"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	// Autostart spawns a managed `opencode serve` when no base_url is set.
	Autostart *bool  `toml:"autostart"`
	BaseURL   string `toml:"base_url"`
	Hostname  string `toml:"hostname"`
	Port      int    `toml:"port"`
	// Binary overrides discovery of the opencode executable.
	Binary string `toml:"binary"`
	// Directory is the workspace the managed server operates in.
	Directory           string `toml:"directory"`
	ReadyTimeoutSeconds int    `toml:"ready_timeout_seconds"`
}

type ChatConfig struct {
	// Model in "provider/model-id" form; empty uses the server default.
	Model string `toml:"model"`
	Agent string `toml:"agent"`
	// DropEventsAfterAbort discards events that arrive after an explicit
	// abort instead of applying them.
	DropEventsAfterAbort bool `toml:"drop_events_after_abort"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Hostname:            defaultHostname,
			ReadyTimeoutSeconds: defaultReadyTimeout,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file over the defaults. A missing or empty file
// yields the defaults without error.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadFromPath(path)
}

func loadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

// AutostartEnabled defaults to true when no external base_url is given.
func (c Config) AutostartEnabled() bool {
	if c.Server.Autostart != nil {
		return *c.Server.Autostart
	}
	return strings.TrimSpace(c.Server.BaseURL) == ""
}

// ServerBaseURL returns the configured external server address, empty when a
// managed server should be spawned instead.
func (c Config) ServerBaseURL() string {
	addr := strings.TrimSpace(c.Server.BaseURL)
	if addr == "" {
		return ""
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/")
}

func (c Config) ServerHostname() string {
	hostname := strings.TrimSpace(c.Server.Hostname)
	if hostname == "" {
		return defaultHostname
	}
	return hostname
}

// ServerAddress joins hostname and port for display.
func (c Config) ServerAddress() string {
	return net.JoinHostPort(c.ServerHostname(), strconv.Itoa(c.Server.Port))
}

func (c Config) ReadyTimeoutSeconds() int {
	if c.Server.ReadyTimeoutSeconds <= 0 {
		return defaultReadyTimeout
	}
	return c.Server.ReadyTimeoutSeconds
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

// ResolveLogPath honors an explicit logging.path, falling back to the data
// directory.
func (c Config) ResolveLogPath() (string, error) {
	path := strings.TrimSpace(c.Logging.Path)
	if path == "" {
		return LogPath()
	}
	return resolvePath(path)
}

func resolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, path), nil
}
