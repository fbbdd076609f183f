package types

import "time"

// ExportStatus is the lifecycle state of an export task.
type ExportStatus string

const (
	ExportQueued    ExportStatus = "queued"
	ExportRunning   ExportStatus = "running"
	ExportDone      ExportStatus = "done"
	ExportError     ExportStatus = "error"
	ExportCancelled ExportStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal tasks are never
// mutated again.
func (s ExportStatus) Terminal() bool {
	return s == ExportDone || s == ExportError || s == ExportCancelled
}

// ExportOptions are the caller-supplied knobs for one export run.
type ExportOptions struct {
	Optimized bool   `json:"optimized"` // faster preset, lower quality
	Publish   bool   `json:"publish"`   // push the finished file to YouTube
	Filename  string `json:"filename"`  // optional export key override
}

// ExportTask is one asynchronous render job. Status snapshots are returned
// to polling clients; only the owning worker mutates the task.
type ExportTask struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"session_id"`
	Status      ExportStatus `json:"status"`
	Progress    float64      `json:"progress"` // completed stages / total stages, 0..1
	Stage       string       `json:"stage,omitempty"`
	DownloadRef string       `json:"download_ref,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// AnalyzeStatus is the state of a session's analyze queue.
type AnalyzeStatus string

const (
	AnalyzeIdle    AnalyzeStatus = "idle"
	AnalyzeRunning AnalyzeStatus = "running"
	AnalyzeDone    AnalyzeStatus = "done"
	AnalyzeError   AnalyzeStatus = "error"
)

// AnalyzeProgress is the snapshot returned by analyze start/step calls.
type AnalyzeProgress struct {
	Status      AnalyzeStatus `json:"status"`
	Processed   int           `json:"processed"`
	Total       int           `json:"total"`
	Failed      int           `json:"failed"`
	LastFile    string        `json:"last_file,omitempty"`
	Description string        `json:"description,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
}
