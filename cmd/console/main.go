package main

import (
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sdfgeoff/ndscore/internal/config"
	"github.com/sdfgeoff/ndscore/internal/console"
)

func main() {
	cfg := config.LoadConsoleConfig()

	model := console.NewApp(cfg)

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		log.Fatalf("console exited: %v", err)
	}
}
