package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"reelforge/demo/client"
	"reelforge/types"
)

// State represents the demo workflow state machine
type State string

const (
	StateIdle      State = "idle"
	StateAnalyzing State = "analyzing"
	StateTiming    State = "timing"
	StateExporting State = "exporting"
	StateComplete  State = "complete"
	StateCancelled State = "cancelled"
	StateError     State = "error"
)

// Model represents the TUI client state (thin client)
type Model struct {
	Client    *client.Client
	SessionID string

	State    State
	Analyze  types.AnalyzeProgress
	Plan     *types.TimingPlan
	TaskID   string
	Task     types.ExportTask
	Logs     []string
	Err      error
}

// NewModel creates a new TUI model
func NewModel(serverURL, sessionID string) Model {
	return Model{
		Client:    client.NewClient(serverURL),
		SessionID: sessionID,
		State:     StateIdle,
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return nil
}

// AddLog appends a log line, keeping the tail visible
func (m Model) AddLog(format string, args ...interface{}) Model {
	m.Logs = append(m.Logs, fmt.Sprintf(format, args...))
	if len(m.Logs) > 10 {
		m.Logs = m.Logs[len(m.Logs)-10:]
	}
	return m
}

// getStateText returns the appropriate state message
func (m Model) getStateText() string {
	switch m.State {
	case StateIdle:
		return HighlightStyle.Render("👋 Ready!") + "\n\n" +
			InfoStyle.Render("Press 'd' to run the full pipeline against session '"+m.SessionID+"'")
	case StateAnalyzing:
		return StatusStyle.Render(fmt.Sprintf("🔎 Analyzing clips… %d/%d", m.Analyze.Processed, m.Analyze.Total))
	case StateTiming:
		return StatusStyle.Render("⏱  Balancing clip timings…")
	case StateExporting:
		return StatusStyle.Render(fmt.Sprintf("🎬 Exporting… %s (%.0f%%)", m.Task.Stage, m.Task.Progress*100))
	case StateComplete:
		return HighlightStyle.Render("✅ COMPLETE")
	case StateCancelled:
		return ErrorStyle.Render("⛔ Export cancelled")
	case StateError:
		errMsg := "Unknown error"
		if m.Err != nil {
			errMsg = m.Err.Error()
		}
		return ErrorStyle.Render(fmt.Sprintf("❌ Error: %v", errMsg))
	default:
		return ""
	}
}
