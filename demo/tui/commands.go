package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"reelforge/demo/client"
)

// startAnalysis creates a command to begin the analyze queue
func startAnalysis(c *client.Client, sessionID string) tea.Cmd {
	return func() tea.Msg {
		prog, err := c.AnalyzeStart(sessionID)
		return AnalyzeProgressMsg{Progress: prog, Err: err}
	}
}

// stepAnalysis creates a command to process the next queued clip
func stepAnalysis(c *client.Client, sessionID string) tea.Cmd {
	return func() tea.Msg {
		prog, err := c.AnalyzeStep(sessionID)
		return AnalyzeProgressMsg{Progress: prog, Err: err}
	}
}

// applyTimings creates a command to run the pacing balancer
func applyTimings(c *client.Client, sessionID string) tea.Cmd {
	return func() tea.Msg {
		plan, err := c.ApplyTimings(sessionID, 0, "standard")
		return TimingsAppliedMsg{Plan: plan, Err: err}
	}
}

// startExport creates a command to submit the export task
func startExport(c *client.Client, sessionID string) tea.Cmd {
	return func() tea.Msg {
		taskID, err := c.StartExport(sessionID, false)
		return ExportStartedMsg{TaskID: taskID, Err: err}
	}
}

// pollExport creates a command to poll the export task status
func pollExport(c *client.Client, taskID string) tea.Cmd {
	return func() tea.Msg {
		task, err := c.ExportStatus(taskID)
		return ExportStatusMsg{Task: task, Err: err}
	}
}

// cancelExport creates a command to request cooperative cancellation
func cancelExport(c *client.Client, taskID string) tea.Cmd {
	return func() tea.Msg {
		accepted, err := c.CancelExport(taskID)
		return CancelSentMsg{Accepted: accepted, Err: err}
	}
}

// tickCmd creates a command that ticks every 500ms for polling
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
