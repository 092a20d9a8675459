package opencode

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mars/internal/logging"
)

// ServerConfig controls how the managed opencode server is spawned.
type ServerConfig struct {
	// Binary overrides discovery of the opencode executable.
	Binary   string
	Hostname string
	Port     int
	// Directory is the workspace the server operates in; empty means the
	// current working directory.
	Directory string
	// LogPath receives the server's combined output when set.
	LogPath string
	// ReadyTimeout bounds the startup poll. Zero means 30s.
	ReadyTimeout time.Duration
}

// Server manages a spawned `opencode serve` process for the lifetime of the
// client. Use Connect-only mode (no Server) when an external server is
// already running.
type Server struct {
	cfg     ServerConfig
	log     logging.Logger
	cmd     *exec.Cmd
	logFile *os.File
	baseURL string
}

func NewServer(cfg ServerConfig, log logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	if strings.TrimSpace(cfg.Hostname) == "" {
		cfg.Hostname = "127.0.0.1"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}
	return &Server{cfg: cfg, log: log}
}

// BaseURL is valid after Start succeeds.
func (s *Server) BaseURL() string {
	if s == nil {
		return ""
	}
	return s.baseURL
}

// Start spawns the server and blocks until it answers /config or the ready
// timeout lapses. A zero port picks a free one before spawning, since the
// server does not report the port it bound.
func (s *Server) Start(ctx context.Context) error {
	if s.cmd != nil {
		return fmt.Errorf("server already started")
	}
	binary, err := discoverBinary(s.cfg.Binary)
	if err != nil {
		return err
	}
	port := s.cfg.Port
	if port <= 0 {
		port, err = freePort(s.cfg.Hostname)
		if err != nil {
			return fmt.Errorf("pick port: %w", err)
		}
	}

	args := []string{"serve", "--port", strconv.Itoa(port), "--hostname", s.cfg.Hostname}
	cmd := exec.Command(binary, args...)
	if dir := strings.TrimSpace(s.cfg.Directory); dir != "" {
		cmd.Dir = dir
	}
	applyServeSysProcAttr(cmd)

	output := io.Discard
	if logPath := strings.TrimSpace(s.cfg.LogPath); logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err == nil {
			if file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
				output = file
				s.logFile = file
			}
		}
	}
	cmd.Stdout = output
	cmd.Stderr = output

	if err := cmd.Start(); err != nil {
		s.closeLogFile()
		return fmt.Errorf("start opencode: %w", err)
	}
	s.cmd = cmd
	s.baseURL = fmt.Sprintf("http://%s", net.JoinHostPort(s.cfg.Hostname, strconv.Itoa(port)))
	s.log.Info("opencode server starting",
		logging.F("pid", cmd.Process.Pid),
		logging.F("base_url", s.baseURL))

	if err := s.waitReady(ctx); err != nil {
		s.Stop()
		return err
	}
	return nil
}

func (s *Server) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(s.cfg.ReadyTimeout)
	probe := &http.Client{Timeout: 2 * time.Second}
	endpoint := s.baseURL + "/config"
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("opencode server did not become ready within %s", s.cfg.ReadyTimeout)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := probe.Do(req)
		if err == nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 500 {
				s.log.Info("opencode server ready")
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// Stop terminates the spawned process. Safe to call multiple times and on a
// server that never started.
func (s *Server) Stop() {
	if s == nil || s.cmd == nil {
		return
	}
	process := s.cmd.Process
	if process != nil {
		_ = terminateProcess(process)
		done := make(chan struct{})
		go func() {
			_, _ = process.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			_ = process.Kill()
		}
	}
	s.cmd = nil
	s.closeLogFile()
	s.log.Info("opencode server stopped")
}

func (s *Server) closeLogFile() {
	if s.logFile != nil {
		_ = s.logFile.Close()
		s.logFile = nil
	}
}

// discoverBinary resolves the opencode executable: explicit override first,
// then PATH, then the usual install locations.
func discoverBinary(override string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("opencode binary %s: %w", override, err)
		}
		return override, nil
	}
	if found, err := exec.LookPath("opencode"); err == nil {
		return found, nil
	}
	home, err := os.UserHomeDir()
	if err == nil {
		candidates := []string{
			filepath.Join(home, ".opencode", "bin", "opencode"),
			filepath.Join(home, ".local", "bin", "opencode"),
			"/usr/local/bin/opencode",
		}
		for _, candidate := range candidates {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("opencode binary not found; install opencode or set server.binary")
}

func freePort(hostname string) (int, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort(hostname, "0"))
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	addr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address %T", listener.Addr())
	}
	return addr.Port, nil
}
