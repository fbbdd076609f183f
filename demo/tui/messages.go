package tui

import (
	"time"

	"reelforge/types"
)

// Messages for the tea program

// AnalyzeProgressMsg is sent after an analyze start or step call
type AnalyzeProgressMsg struct {
	Progress types.AnalyzeProgress
	Err      error
}

// TimingsAppliedMsg is sent after the balancer pass completes
type TimingsAppliedMsg struct {
	Plan *types.TimingPlan
	Err  error
}

// ExportStartedMsg is sent when the export task is accepted
type ExportStartedMsg struct {
	TaskID string
	Err    error
}

// ExportStatusMsg is sent on each export poll
type ExportStatusMsg struct {
	Task types.ExportTask
	Err  error
}

// CancelSentMsg is sent after a cancel request
type CancelSentMsg struct {
	Accepted bool
	Err      error
}

// TickMsg is sent periodically to trigger export polling
type TickMsg struct {
	Time time.Time
}
