package types

// ClipSpec is one clip's row in the storyboard document.
// Invariants: 0 < Duration <= RawDuration, Offset >= 0, offsets
// non-decreasing across the ordered clip sequence.
type ClipSpec struct {
	File        string  `yaml:"file" json:"file"`
	Text        string  `yaml:"text" json:"text"`
	StartTime   float64 `yaml:"start_time" json:"start_time"` // trim point inside the source clip
	Duration    float64 `yaml:"duration" json:"duration"`     // assigned duration on the timeline
	RawDuration float64 `yaml:"raw_duration" json:"raw_duration"`
	Offset      float64 `yaml:"offset" json:"offset"` // start offset on the assembled timeline
	Scale       float64 `yaml:"scale" json:"scale"`
	TextColor   string  `yaml:"text_color,omitempty" json:"text_color,omitempty"`
	Emphasis    float64 `yaml:"emphasis,omitempty" json:"emphasis,omitempty"` // explicit pacing weight override
}

// MusicSettings describes the backing track request handed to the renderer.
type MusicSettings struct {
	Style  string  `yaml:"style" json:"style"`
	Mood   string  `yaml:"mood" json:"mood"`
	Volume float64 `yaml:"volume" json:"volume"`
}

// RenderSettings holds global render options.
type RenderSettings struct {
	TTSEnabled     bool    `yaml:"tts_enabled" json:"tts_enabled"`
	TTSVoice       string  `yaml:"tts_voice" json:"tts_voice"`
	FgScaleDefault float64 `yaml:"fg_scale_default" json:"fg_scale_default"`
	ExportMode     string  `yaml:"export_mode" json:"export_mode"` // "standard" or "optimized"
}

// CTASettings describes the optional call-to-action overlay.
type CTASettings struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	Text      string  `yaml:"text" json:"text"`
	Voiceover bool    `yaml:"voiceover" json:"voiceover"`
	Duration  float64 `yaml:"duration" json:"duration"`
	Position  string  `yaml:"position" json:"position"`
}

// Storyboard is the configuration document: the ordered clip list plus
// global settings. It is the durable artifact of a session and must
// round-trip through its YAML form so users can hand-edit it.
type Storyboard struct {
	Clips  []ClipSpec     `yaml:"clips" json:"clips"`
	Music  MusicSettings  `yaml:"music" json:"music"`
	Render RenderSettings `yaml:"render" json:"render"`
	CTA    CTASettings    `yaml:"cta" json:"cta"`
}

// TotalDuration sums the assigned clip durations.
func (sb *Storyboard) TotalDuration() float64 {
	var total float64
	for _, c := range sb.Clips {
		total += c.Duration
	}
	return total
}
