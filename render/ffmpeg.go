package render

import (
	"context"
	"fmt"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"reelforge/config"
	"reelforge/types"
)

// FFmpegEngine renders with ffmpeg through ffmpeg-go filter graphs,
// producing 9:16 vertical output.
type FFmpegEngine struct{}

func NewFFmpegEngine() *FFmpegEngine { return &FFmpegEngine{} }

func (e *FFmpegEngine) ComposeClip(ctx context.Context, clip types.ClipSpec, src, dst string, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in := ffmpeg.Input(src, ffmpeg.KwArgs{
		"ss": fmt.Sprintf("%.2f", clip.StartTime),
		"t":  fmt.Sprintf("%.2f", clip.Duration),
	})

	// Center-crop to 9:16 then scale, so horizontal sources still fill the
	// vertical frame.
	stream := ffmpeg.Filter(
		[]*ffmpeg.Stream{in},
		"crop",
		ffmpeg.Args{"ih*9/16:ih"},
	).Filter(
		"scale",
		ffmpeg.Args{fmt.Sprintf("%d:%d", config.VideoWidth, config.VideoHeight)},
	)

	if text := strings.TrimSpace(clip.Text); text != "" {
		stream = stream.Filter("drawtext", ffmpeg.Args{}, ffmpeg.KwArgs{
			"text":        escapeDrawtext(text),
			"fontcolor":   textColor(clip),
			"fontsize":    48,
			"x":           "(w-text_w)/2",
			"y":           "h*0.12",
			"shadowcolor": "000000",
			"shadowx":     2,
			"shadowy":     2,
		})
	}

	err := stream.Output(dst, ffmpeg.KwArgs{
		"c:v":    config.VideoCodec,
		"c:a":    config.AudioCodec,
		"b:a":    config.AudioBitrate,
		"preset": preset(opts),
	}).OverWriteOutput().Run()
	if err != nil {
		return fmt.Errorf("compose %s: %w", clip.File, err)
	}
	return nil
}

func (e *FFmpegEngine) Concat(ctx context.Context, parts []string, dst string, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(parts) == 0 {
		return fmt.Errorf("concat: no parts")
	}

	streams := make([]*ffmpeg.Stream, 0, len(parts))
	for _, p := range parts {
		streams = append(streams, ffmpeg.Input(p))
	}

	err := ffmpeg.Concat(streams).Output(dst, ffmpeg.KwArgs{
		"c:v":    config.VideoCodec,
		"c:a":    config.AudioCodec,
		"preset": preset(opts),
	}).OverWriteOutput().Run()
	if err != nil {
		return fmt.Errorf("concat: %w", err)
	}
	return nil
}

func (e *FFmpegEngine) Finalize(ctx context.Context, src, dst string, sb *types.Storyboard, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in := ffmpeg.Input(src)
	stream := in

	if sb != nil && sb.CTA.Enabled && strings.TrimSpace(sb.CTA.Text) != "" {
		stream = stream.Filter("drawtext", ffmpeg.Args{}, ffmpeg.KwArgs{
			"text":        escapeDrawtext(sb.CTA.Text),
			"fontcolor":   "white",
			"fontsize":    42,
			"x":           "(w-text_w)/2",
			"y":           ctaY(sb.CTA.Position),
			"shadowcolor": "000000",
			"shadowx":     2,
			"shadowy":     2,
		})
	}

	err := stream.Output(dst, ffmpeg.KwArgs{
		"c:v":    config.VideoCodec,
		"c:a":    config.AudioCodec,
		"b:a":    config.AudioBitrate,
		"preset": preset(opts),
		"t":      fmt.Sprintf("%.2f", config.MaxVideoDuration),
	}).OverWriteOutput().Run()
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	return nil
}

func preset(opts Options) string {
	if opts.Optimized {
		return config.VideoPresetOptimized
	}
	return config.VideoPreset
}

func textColor(clip types.ClipSpec) string {
	if clip.TextColor != "" {
		return clip.TextColor
	}
	return "white"
}

func ctaY(position string) string {
	if position == "top" {
		return "h*0.08"
	}
	return "h-h*0.15"
}

// escapeDrawtext escapes the characters drawtext treats specially.
func escapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, `:`, `\:`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return s
}
