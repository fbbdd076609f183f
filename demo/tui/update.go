package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"reelforge/types"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case AnalyzeProgressMsg:
		return m.handleAnalyzeProgress(msg)
	case TimingsAppliedMsg:
		return m.handleTimingsApplied(msg)
	case ExportStartedMsg:
		return m.handleExportStarted(msg)
	case ExportStatusMsg:
		return m.handleExportStatus(msg)
	case CancelSentMsg:
		return m.handleCancelSent(msg)
	case TickMsg:
		if m.State == StateExporting {
			return m, pollExport(m.Client, m.TaskID)
		}
		return m, nil
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "d", "D":
		if m.State == StateIdle || m.State == StateComplete || m.State == StateError || m.State == StateCancelled {
			m.State = StateAnalyzing
			m.Plan = nil
			m.TaskID = ""
			m.Task = types.ExportTask{}
			m.Err = nil
			m = m.AddLog("Starting clip analysis…")
			return m, startAnalysis(m.Client, m.SessionID)
		}
	case "c", "C":
		if m.State == StateExporting && m.TaskID != "" {
			m = m.AddLog("Requesting export cancellation…")
			return m, cancelExport(m.Client, m.TaskID)
		}
	}
	return m, nil
}

// handleAnalyzeProgress advances the step loop until the queue drains
func (m Model) handleAnalyzeProgress(msg AnalyzeProgressMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.State = StateError
		m.Err = msg.Err
		return m, nil
	}
	m.Analyze = msg.Progress

	if msg.Progress.LastFile != "" {
		if msg.Progress.LastError != "" {
			m = m.AddLog("Analysis failed for %s: %s", msg.Progress.LastFile, msg.Progress.LastError)
		} else {
			m = m.AddLog("Analyzed %s", msg.Progress.LastFile)
		}
	}

	switch msg.Progress.Status {
	case types.AnalyzeRunning:
		return m, stepAnalysis(m.Client, m.SessionID)
	case types.AnalyzeDone:
		m.State = StateTiming
		m = m.AddLog("Analysis complete (%d clip(s), %d failed)", msg.Progress.Total, msg.Progress.Failed)
		return m, applyTimings(m.Client, m.SessionID)
	default:
		m.State = StateError
		if msg.Progress.LastError != "" {
			m.Err = errString(msg.Progress.LastError)
		} else {
			m.Err = errString("analysis failed")
		}
		return m, nil
	}
}

// handleTimingsApplied moves on to the export once the plan is stored
func (m Model) handleTimingsApplied(msg TimingsAppliedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.State = StateError
		m.Err = msg.Err
		return m, nil
	}
	m.Plan = msg.Plan
	m.State = StateExporting
	m = m.AddLog("Timings balanced: %.2fs over %d clip(s)", msg.Plan.Achieved, len(msg.Plan.Entries))
	return m, startExport(m.Client, m.SessionID)
}

// handleExportStarted begins the polling loop
func (m Model) handleExportStarted(msg ExportStartedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.State = StateError
		m.Err = msg.Err
		return m, nil
	}
	m.TaskID = msg.TaskID
	m = m.AddLog("Export task %s accepted", msg.TaskID)
	return m, tea.Batch(pollExport(m.Client, m.TaskID), tickCmd())
}

// handleExportStatus updates progress and finishes on terminal states
func (m Model) handleExportStatus(msg ExportStatusMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		// The task may have been retired between polls; report and stop.
		m.State = StateError
		m.Err = msg.Err
		return m, nil
	}
	m.Task = msg.Task

	switch msg.Task.Status {
	case types.ExportDone:
		m.State = StateComplete
		m = m.AddLog("Export finished: %s", msg.Task.DownloadRef)
		return m, nil
	case types.ExportError:
		m.State = StateError
		m.Err = errString(msg.Task.Error)
		return m, nil
	case types.ExportCancelled:
		m.State = StateCancelled
		m = m.AddLog("Export cancelled")
		return m, nil
	default:
		return m, tickCmd()
	}
}

// handleCancelSent records the cancel outcome; polling picks up the state
func (m Model) handleCancelSent(msg CancelSentMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m = m.AddLog("Cancel failed: %v", msg.Err)
		return m, nil
	}
	if msg.Accepted {
		m = m.AddLog("Cancellation accepted")
	} else {
		m = m.AddLog("Task already finished; nothing to cancel")
	}
	return m, nil
}

type errString string

func (e errString) Error() string { return string(e) }
