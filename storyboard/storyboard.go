// Package storyboard manages the configuration document: the ordered clip
// list plus global settings, serialized as YAML so a user can hand-edit it
// between pipeline stages.
package storyboard

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"reelforge/types"
)

// Default settings for a freshly generated storyboard.
var (
	defaultMusic = types.MusicSettings{
		Style:  "chill travel",
		Mood:   "uplifting",
		Volume: 0.25,
	}
	defaultRender = types.RenderSettings{
		TTSEnabled:     false,
		TTSVoice:       "alloy",
		FgScaleDefault: 1.0,
		ExportMode:     "standard",
	}
	defaultCTA = types.CTASettings{
		Enabled:  false,
		Duration: 3.0,
		Position: "bottom",
	}
)

// Marshal renders the storyboard as YAML.
func Marshal(sb *types.Storyboard) (string, error) {
	b, err := yaml.Marshal(sb)
	if err != nil {
		return "", fmt.Errorf("marshal storyboard: %w", err)
	}
	return string(b), nil
}

// Unmarshal parses a YAML storyboard document.
func Unmarshal(text string) (*types.Storyboard, error) {
	var sb types.Storyboard
	if err := yaml.Unmarshal([]byte(text), &sb); err != nil {
		return nil, fmt.Errorf("parse storyboard: %w", err)
	}
	if sb.Clips == nil {
		sb.Clips = []types.ClipSpec{}
	}
	return &sb, nil
}

// BuildFromDescriptions creates a storyboard skeleton from the analyze
// results: one clip per file in registered order, captioned with its
// description, with default durations and settings. The first and last
// clips get framing captions when no description is available.
func BuildFromDescriptions(files []types.FileRef, descriptions map[string]string) *types.Storyboard {
	sb := &types.Storyboard{
		Clips:  make([]types.ClipSpec, 0, len(files)),
		Music:  defaultMusic,
		Render: defaultRender,
		CTA:    defaultCTA,
	}

	for i, f := range files {
		text := strings.TrimSpace(descriptions[f.Name])
		if text == "" {
			switch i {
			case 0:
				text = "Here's a place worth seeing."
			case len(files) - 1:
				text = "Would you stay here?"
			default:
				text = "Take a closer look."
			}
		}
		dur := 5.0
		if f.Duration > 0 && f.Duration < dur {
			dur = f.Duration
		}
		sb.Clips = append(sb.Clips, types.ClipSpec{
			File:        f.Name,
			Text:        text,
			StartTime:   0,
			Duration:    dur,
			RawDuration: f.Duration,
			Scale:       1.0,
		})
	}
	recalcOffsets(sb)
	return sb
}

// Captions returns the clip captions joined line-per-clip, in order.
func Captions(sb *types.Storyboard) string {
	lines := make([]string, 0, len(sb.Clips))
	for _, c := range sb.Clips {
		lines = append(lines, c.Text)
	}
	return strings.Join(lines, "\n")
}

// SetCaptions assigns non-empty lines to clips in order. Surplus lines are
// ignored; clips beyond the provided lines keep their captions.
func SetCaptions(sb *types.Storyboard, text string) int {
	var captions []string
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			captions = append(captions, s)
		}
	}
	n := 0
	for i := range sb.Clips {
		if n >= len(captions) {
			break
		}
		sb.Clips[i].Text = captions[n]
		n++
	}
	return n
}

// ApplyPlan writes a timing plan back onto the storyboard clips.
func ApplyPlan(sb *types.Storyboard, plan *types.TimingPlan) {
	byFile := make(map[string]types.TimingEntry, len(plan.Entries))
	for _, e := range plan.Entries {
		byFile[e.File] = e
	}
	for i := range sb.Clips {
		if e, ok := byFile[sb.Clips[i].File]; ok {
			sb.Clips[i].Duration = e.Duration
			sb.Clips[i].Offset = e.Offset
			sb.Clips[i].StartTime = 0
		}
	}
}

// SetTTS updates the TTS render settings.
func SetTTS(sb *types.Storyboard, enabled bool, voice string) {
	sb.Render.TTSEnabled = enabled
	if voice != "" {
		sb.Render.TTSVoice = voice
	}
}

// SetCTA updates the call-to-action overlay settings.
func SetCTA(sb *types.Storyboard, enabled bool, text *string, voiceover *bool) {
	sb.CTA.Enabled = enabled
	if text != nil {
		sb.CTA.Text = *text
	}
	if voiceover != nil {
		sb.CTA.Voiceover = *voiceover
	}
	if sb.CTA.Duration <= 0 {
		sb.CTA.Duration = defaultCTA.Duration
	}
	if sb.CTA.Position == "" {
		sb.CTA.Position = defaultCTA.Position
	}
}

// SetForegroundScale updates the default foreground scale.
func SetForegroundScale(sb *types.Storyboard, value float64) {
	sb.Render.FgScaleDefault = value
}

// SetExportMode stores the export mode, defaulting anything unknown
// to "standard".
func SetExportMode(sb *types.Storyboard, mode string) string {
	if mode != "standard" && mode != "optimized" {
		mode = "standard"
	}
	sb.Render.ExportMode = mode
	return mode
}

// ExportMode reads the stored export mode with the same defaulting.
func ExportMode(sb *types.Storyboard) string {
	if sb == nil || (sb.Render.ExportMode != "standard" && sb.Render.ExportMode != "optimized") {
		return "standard"
	}
	return sb.Render.ExportMode
}

func recalcOffsets(sb *types.Storyboard) {
	var offset float64
	for i := range sb.Clips {
		sb.Clips[i].Offset = offset
		offset += sb.Clips[i].Duration
	}
}
