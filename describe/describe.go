// Package describe wraps the external content-description collaborators:
// a Describer that produces one-sentence scene descriptions for clips, and
// a Rewriter that restyles captions. Implementations are selected from the
// environment; with no API keys configured the static fallbacks keep the
// pipeline usable offline.
package describe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrDescriberDown marks an infrastructure failure: the collaborator is
// unreachable and the whole analyze run should stop, as opposed to a
// per-clip failure which only skips the clip.
var ErrDescriberDown = errors.New("description service unreachable")

// Describer produces a short scene description for one clip. frameURLs, if
// non-empty, point at retrievable stills or the clip itself for vision
// models; implementations without vision support may ignore them.
type Describer interface {
	DescribeClip(ctx context.Context, name string, frameURLs []string) (string, error)
	ModelName() string
}

// Rewriter restyles a caption. Styles: punchy, descriptive, cinematic.
type Rewriter interface {
	Rewrite(ctx context.Context, caption, style string) (string, error)
}

// StylePrompt maps an overlay style onto the rewrite instruction.
func StylePrompt(style string) string {
	switch normalizeStyle(style) {
	case "descriptive":
		return "Rewrite as vivid, descriptive copy (12-18 words). No hashtags or emojis."
	case "cinematic":
		return "Rewrite as emotional, poetic copy (10-16 words). No hashtags or emojis."
	default:
		return "Rewrite as a short, high-retention hook (8-12 words). No hashtags or emojis."
	}
}

var styleAliases = map[string][]string{
	"punchy":      {"punchy", "hook", "short", "tiktok"},
	"descriptive": {"descriptive", "detailed", "rich"},
	"cinematic":   {"cinematic", "emotional", "poetic"},
}

func normalizeStyle(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for key, aliases := range styleAliases {
		for _, a := range aliases {
			if s == a {
				return key
			}
		}
	}
	return "punchy"
}

// NewDescriberFromEnv prefers OpenAI when OPENAI_API_KEY is set, falling
// back to the static describer.
func NewDescriberFromEnv() Describer {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return NewOpenAIDescriber(key, os.Getenv("OPENAI_VISION_MODEL"))
	}
	return &Static{}
}

// NewRewriterFromEnv prefers Cohere when COHERE_API_KEY is set, falling
// back to the static rewriter.
func NewRewriterFromEnv() Rewriter {
	if key := os.Getenv("COHERE_API_KEY"); key != "" {
		return NewCohereRewriter(key, os.Getenv("COHERE_MODEL"))
	}
	return &Static{}
}

// Static is the no-LLM fallback: deterministic placeholder descriptions and
// identity rewrites.
type Static struct{}

func (s *Static) DescribeClip(ctx context.Context, name string, frameURLs []string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ReplaceAll(base, "_", " ")
	return fmt.Sprintf("A scene from %s.", base), nil
}

func (s *Static) ModelName() string { return "static" }

func (s *Static) Rewrite(ctx context.Context, caption, style string) (string, error) {
	return caption, nil
}
