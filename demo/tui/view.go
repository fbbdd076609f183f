package tui

import (
	"fmt"
	"strings"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	// Title
	b.WriteString(TitleStyle.Render("🎬 ReelForge Pipeline Demo"))
	b.WriteString("\n\n")

	// Current state
	b.WriteString(m.getStateText())
	b.WriteString("\n\n")

	// Analysis progress
	if m.Analyze.Total > 0 {
		stats := fmt.Sprintf("📊 Clips analyzed: %d/%d", m.Analyze.Processed, m.Analyze.Total)
		if m.Analyze.Failed > 0 {
			stats += fmt.Sprintf(" (%d failed)", m.Analyze.Failed)
		}
		b.WriteString(InfoStyle.Render(stats))
		b.WriteString("\n")
	}

	// Timing plan
	if m.Plan != nil {
		stats := fmt.Sprintf("⏱  Plan: %.2fs achieved vs %.2fs target", m.Plan.Achieved, m.Plan.Target)
		if m.Plan.Shortfall > 0 {
			stats += fmt.Sprintf(" (%.2fs short)", m.Plan.Shortfall)
		}
		b.WriteString(InfoStyle.Render(stats))
		b.WriteString("\n")
	}

	// Logs
	if len(m.Logs) > 0 {
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		for _, logMsg := range m.Logs {
			b.WriteString(InfoStyle.Render("   " + logMsg))
			b.WriteString("\n")
		}
	}

	// Result box
	if m.State == StateComplete && m.Task.DownloadRef != "" {
		result := HighlightStyle.Render("Export Result") + "\n\n" +
			fmt.Sprintf("Task: %s\n", m.Task.ID) +
			fmt.Sprintf("File: %s\n", m.Task.DownloadRef)
		b.WriteString("\n")
		b.WriteString(BoxStyle.Render(result))
		b.WriteString("\n")
	}

	// Help text
	b.WriteString("\n")
	switch m.State {
	case StateIdle:
		b.WriteString(InfoStyle.Render("Press 'd' to run the pipeline | 'q' or Ctrl+C to quit"))
	case StateExporting:
		b.WriteString(InfoStyle.Render("Press 'c' to cancel the export | 'q' or Ctrl+C to quit"))
	default:
		b.WriteString(InfoStyle.Render("Press 'd' to run again | 'q' or Ctrl+C to quit"))
	}

	return b.String()
}
