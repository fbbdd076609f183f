package config

import "time"

const (
	// Video output configuration
	VideoWidth   = 1080
	VideoHeight  = 1920
	VideoCodec   = "libx264"
	AudioCodec   = "aac"
	AudioBitrate = "192k"
	VideoPreset  = "medium"
	// Optimized exports trade quality for speed
	VideoPresetOptimized = "ultrafast"
	MaxVideoDuration     = 180.0 // 3 minutes max

	// Timing balancer
	MinClipSeconds  = 2.0  // never cut a clip shorter than this (unless the source is)
	TimingTolerance = 0.05 // seconds; acceptable gap between achieved and target totals

	// Export scheduler
	ExportPoolSize  = 2
	StageTimeout    = 5 * time.Minute  // watchdog: a stage with no progress forces the task to error
	ExportRetention = 30 * time.Minute // terminal tasks stay queryable this long (or until the session's next export)

	// Step queue
	AnalysisUnavailable = "(analysis unavailable)"

	// Rolling status log
	StatusLogCap = 500

	// S3 layout
	RawPrefix       = "raw_uploads"
	ProcessedPrefix = "processed"
	ExportsPrefix   = "exports"
)
