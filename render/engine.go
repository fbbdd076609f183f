// Package render wraps the external video-rendering engine behind discrete,
// interruptible stages so the export scheduler can checkpoint cancellation
// between them. Pixel-level composition lives entirely behind the Engine
// interface.
package render

import (
	"context"

	"reelforge/types"
)

// Options are the per-export render knobs.
type Options struct {
	// Optimized trades quality for encode speed.
	Optimized bool
}

// Engine renders a storyboard in stages. Each method is one stage: it
// should honor ctx cancellation where the underlying tool allows, and keep
// its own temp state so a cancelled export can discard partial output by
// deleting the stage outputs.
type Engine interface {
	// ComposeClip cuts one source clip to its assigned window and burns in
	// its caption, writing the result to dst.
	ComposeClip(ctx context.Context, clip types.ClipSpec, src, dst string, opts Options) error
	// Concat joins composed clip parts back to back into dst.
	Concat(ctx context.Context, parts []string, dst string, opts Options) error
	// Finalize applies global settings (CTA overlay, end padding) and
	// produces the deliverable file at dst.
	Finalize(ctx context.Context, src, dst string, sb *types.Storyboard, opts Options) error
}
