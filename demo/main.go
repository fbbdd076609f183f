package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"reelforge/demo/tui"
)

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("url", "http://localhost:8080", "ReelForge server URL")
	sessionID := flag.String("session", "demo", "Session ID to drive")
	flag.Parse()

	// Ctrl+C or SIGTERM cancels the context and bubbletea winds the
	// program down on its own.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	program := tea.NewProgram(tui.NewModel(*serverURL, *sessionID), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "reelforge demo: %v\n", err)
		os.Exit(1)
	}
}
