package storyboard

import (
	"strings"
	"testing"

	"reelforge/types"
)

func TestYAMLRoundTrip(t *testing.T) {
	sb := BuildFromDescriptions(
		[]types.FileRef{
			{Name: "beach.mp4", Duration: 8},
			{Name: "pool.mp4", Duration: 12},
		},
		map[string]string{"beach.mp4": "Waves rolling onto a white sand beach."},
	)
	sb.CTA.Enabled = true
	sb.CTA.Text = "Book your stay now"

	text, err := Marshal(sb)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	parsed, err := Unmarshal(text)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(parsed.Clips) != 2 {
		t.Fatalf("got %d clips, want 2", len(parsed.Clips))
	}
	if parsed.Clips[0].Text != "Waves rolling onto a white sand beach." {
		t.Fatalf("caption lost in round trip: %q", parsed.Clips[0].Text)
	}
	if !parsed.CTA.Enabled || parsed.CTA.Text != "Book your stay now" {
		t.Fatalf("CTA settings lost: %+v", parsed.CTA)
	}
}

func TestBuildFromDescriptionsFraming(t *testing.T) {
	files := []types.FileRef{
		{Name: "a.mp4", Duration: 10},
		{Name: "b.mp4", Duration: 3},
		{Name: "c.mp4", Duration: 10},
	}

	sb := BuildFromDescriptions(files, nil)

	if len(sb.Clips) != 3 {
		t.Fatalf("got %d clips, want 3", len(sb.Clips))
	}
	if sb.Clips[0].Text == sb.Clips[1].Text {
		t.Fatalf("first clip should get an opening caption, middle a generic one")
	}
	// Defaults cap at 5s but never exceed the source length.
	if sb.Clips[0].Duration != 5 {
		t.Fatalf("clip 0 duration = %v, want 5", sb.Clips[0].Duration)
	}
	if sb.Clips[1].Duration != 3 {
		t.Fatalf("clip 1 duration = %v, want raw 3", sb.Clips[1].Duration)
	}
	// Offsets are laid out back to back.
	if sb.Clips[1].Offset != 5 || sb.Clips[2].Offset != 8 {
		t.Fatalf("offsets = %v, %v; want 5, 8", sb.Clips[1].Offset, sb.Clips[2].Offset)
	}
}

func TestCaptionsRoundTrip(t *testing.T) {
	sb := BuildFromDescriptions([]types.FileRef{
		{Name: "a.mp4", Duration: 5},
		{Name: "b.mp4", Duration: 5},
	}, nil)

	n := SetCaptions(sb, "First line\n\nSecond line\nExtra line ignored")
	if n != 2 {
		t.Fatalf("updated %d captions, want 2", n)
	}
	got := Captions(sb)
	if got != "First line\nSecond line" {
		t.Fatalf("captions = %q", got)
	}
}

func TestSetCaptionsKeepsSurplusClips(t *testing.T) {
	sb := BuildFromDescriptions([]types.FileRef{
		{Name: "a.mp4", Duration: 5},
		{Name: "b.mp4", Duration: 5},
		{Name: "c.mp4", Duration: 5},
	}, map[string]string{"c.mp4": "Original third caption."})

	SetCaptions(sb, "Only one line")
	if sb.Clips[0].Text != "Only one line" {
		t.Fatalf("first caption not replaced: %q", sb.Clips[0].Text)
	}
	if sb.Clips[2].Text != "Original third caption." {
		t.Fatalf("third caption should be untouched: %q", sb.Clips[2].Text)
	}
}

func TestApplyPlanRewritesTimings(t *testing.T) {
	sb := BuildFromDescriptions([]types.FileRef{
		{Name: "a.mp4", Duration: 10},
		{Name: "b.mp4", Duration: 10},
	}, nil)

	plan := &types.TimingPlan{
		Entries: []types.TimingEntry{
			{File: "a.mp4", Duration: 4, Offset: 0},
			{File: "b.mp4", Duration: 6, Offset: 4},
		},
		Target:   10,
		Achieved: 10,
	}

	ApplyPlan(sb, plan)

	if sb.Clips[0].Duration != 4 || sb.Clips[1].Duration != 6 {
		t.Fatalf("durations = %v, %v", sb.Clips[0].Duration, sb.Clips[1].Duration)
	}
	if sb.Clips[1].Offset != 4 {
		t.Fatalf("offset = %v, want 4", sb.Clips[1].Offset)
	}
	if sb.TotalDuration() != 10 {
		t.Fatalf("total duration = %v, want 10", sb.TotalDuration())
	}
}

func TestExportModeDefaulting(t *testing.T) {
	sb := &types.Storyboard{}

	if got := ExportMode(sb); got != "standard" {
		t.Fatalf("empty export mode = %q, want standard", got)
	}
	if got := SetExportMode(sb, "optimized"); got != "optimized" {
		t.Fatalf("set optimized returned %q", got)
	}
	if got := SetExportMode(sb, "turbo"); got != "standard" {
		t.Fatalf("unknown mode should default to standard, got %q", got)
	}
	if got := ExportMode(nil); got != "standard" {
		t.Fatalf("nil storyboard export mode = %q, want standard", got)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := Unmarshal("clips: [\n")
	if err == nil {
		t.Fatalf("expected parse error for malformed YAML")
	}
	if !strings.Contains(err.Error(), "parse storyboard") {
		t.Fatalf("error should name the document: %v", err)
	}
}
