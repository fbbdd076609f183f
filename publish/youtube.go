// Package publish pushes finished exports to YouTube Shorts when the
// export options ask for it. Credentials come from a service-account JSON
// file; without one the scheduler simply skips publishing.
package publish

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"reelforge/config"
	"reelforge/storyboard"
	"reelforge/types"
)

// Uploader wraps the YouTube data API for shorts uploads.
type Uploader struct {
	service *youtube.Service
}

// NewUploaderFromEnv reads YOUTUBE_SERVICE_ACCOUNT (path to a
// service-account JSON). Returns nil with no error when unset.
func NewUploaderFromEnv(ctx context.Context) (*Uploader, error) {
	path := strings.TrimSpace(config.GetEnvOrDefault("YOUTUBE_SERVICE_ACCOUNT", ""))
	if path == "" {
		return nil, nil
	}
	return NewUploader(ctx, path)
}

func NewUploader(ctx context.Context, serviceAccountFile string) (*Uploader, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}

	service, err := youtube.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create YouTube service: %w", err)
	}
	return &Uploader{service: service}, nil
}

// Upload pushes the rendered file, titling it from the storyboard's first
// caption. Returns the published video id.
func (u *Uploader) Upload(ctx context.Context, videoPath string, sb *types.Storyboard) (string, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer file.Close()

	title := "New short"
	if sb != nil && len(sb.Clips) > 0 && strings.TrimSpace(sb.Clips[0].Text) != "" {
		title = sb.Clips[0].Text
	}
	if len(title) > 100 {
		title = title[:97] + "..."
	}

	description := ""
	if sb != nil {
		description = storyboard.Captions(sb)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: description,
			CategoryId:  "24", // Entertainment
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           "public",
			SelfDeclaredMadeForKids: false,
		},
	}

	call := u.service.Videos.Insert([]string{"snippet", "status"}, video)
	call = call.Media(file)
	call = call.Context(ctx)

	response, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("upload video: %w", err)
	}

	log.Printf("Published https://youtube.com/shorts/%s", response.Id)
	return response.Id, nil
}
