package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"mars/internal/config"
	"mars/internal/logging"
	"mars/internal/store"
)

// Run starts the terminal UI and blocks until the user quits.
func Run(cfg config.Config, recents store.RecentStore, log logging.Logger) error {
	model := NewModel(cfg, recents, log)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
