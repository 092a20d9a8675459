package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"mars/internal/app"
	"mars/internal/config"
	"mars/internal/logging"
	"mars/internal/opencode"
	"mars/internal/store"
	"mars/internal/types"
)

const usageText = `mars is a terminal chat client for opencode.

Usage:
  mars [command] [flags]

Commands:
  ui        run the chat UI (default)
  sessions  list sessions on the server
  recents   list recently opened sessions
  version   print version
  help      show help

UI flags:
  --server   base URL of a running opencode server (skips autostart)
  --model    model as provider/model-id
  --agent    agent name

Examples:
  mars
  mars ui --model anthropic/claude-sonnet-4
  mars sessions --server http://127.0.0.1:4096
`

const version = "dev"

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		exitOnErr("ui", runUI(nil))
		return
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
	case "ui":
		exitOnErr("ui", runUI(args[1:]))
	case "sessions":
		exitOnErr("sessions", runSessions(args[1:]))
	case "recents":
		exitOnErr("recents", runRecents(args[1:]))
	case "version":
		fmt.Println(version)
	default:
		if args[0][0] == '-' {
			exitOnErr("ui", runUI(args))
			return
		}
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func exitOnErr(command string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
	os.Exit(1)
}

func runUI(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	serverURL := fs.String("server", "", "base URL of a running opencode server")
	model := fs.String("model", "", "model as provider/model-id")
	agent := fs.String("agent", "", "agent name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *serverURL != "" {
		cfg.Server.BaseURL = *serverURL
	}
	if *model != "" {
		cfg.Chat.Model = *model
	}
	if *agent != "" {
		cfg.Chat.Agent = *agent
	}

	log, logFile, err := openLogger(cfg)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	recents, err := openRecents()
	if err != nil {
		log.Warn("recents store unavailable", logging.F("error", err))
		recents = nil
	}

	return app.Run(cfg, recents, log)
}

func runSessions(args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	serverURL := fs.String("server", "", "base URL of a running opencode server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *serverURL != "" {
		cfg.Server.BaseURL = *serverURL
	}
	baseURL := cfg.ServerBaseURL()
	if baseURL == "" {
		return fmt.Errorf("no server configured; pass --server or set server.base_url")
	}

	client, err := opencode.NewClient(opencode.Config{BaseURL: baseURL}, logging.Nop())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sessions, err := client.ListSessions(ctx)
	if err != nil {
		return err
	}
	printSessions(sessions)
	return nil
}

func runRecents(args []string) error {
	fs := flag.NewFlagSet("recents", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	recents, err := openRecents()
	if err != nil {
		return err
	}
	defer recents.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	records, err := recents.List(ctx)
	if err != nil {
		return err
	}
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tLAST OPENED\tTITLE")
	for _, record := range records {
		if record == nil || record.Session == nil {
			continue
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\n",
			record.Session.ID,
			record.LastOpenedAt.Local().Format("2006-01-02 15:04"),
			record.Session.Title)
	}
	return writer.Flush()
}

func printSessions(sessions []types.Session) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tUPDATED\tTITLE")
	for _, session := range sessions {
		updated := "-"
		if session.UpdatedAt > 0 {
			updated = time.UnixMilli(int64(session.UpdatedAt)).Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\n", session.ID, updated, session.Title)
	}
	_ = writer.Flush()
}

func openLogger(cfg config.Config) (logging.Logger, *os.File, error) {
	path, err := cfg.ResolveLogPath()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dirOf(path), 0o700); err != nil {
		return nil, nil, err
	}
	return loggerAtPath(path, logging.ParseLevel(cfg.LogLevel()))
}

func loggerAtPath(path string, level logging.Level) (logging.Logger, *os.File, error) {
	log, file, err := logging.NewFile(path, level)
	if err != nil {
		// The UI owns stdout; fall back to a silent logger rather than
		// corrupting the display.
		return logging.Nop(), nil, nil
	}
	return log, file, err
}

func openRecents() (store.RecentStore, error) {
	path, err := config.RecentsDBPath()
	if err != nil {
		return nil, err
	}
	return store.NewRecentStore(path)
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if os.IsPathSeparator(path[i]) {
			if i == 0 {
				return string(path[0])
			}
			return path[:i]
		}
	}
	return "."
}
