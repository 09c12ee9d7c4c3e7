package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/apperrs"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/models"
)

// musicCategoryID is YouTube's category for music uploads.
const musicCategoryID = "10"

// Uploader publishes assembled videos via the YouTube Data API, using a
// caller-supplied OAuth access token per upload.
type Uploader struct {
	logger *zap.Logger
}

// NewUploader creates an uploader.
func NewUploader(logger *zap.Logger) *Uploader {
	return &Uploader{logger: logger}
}

// Upload sends the video file with the task's metadata and returns the
// public watch URL.
func (u *Uploader) Upload(ctx context.Context, accessToken, videoPath string, meta models.ResultMetadata) (string, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := youtubeapi.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return "", fmt.Errorf("create youtube service: %w", err)
	}

	visibility := meta.Visibility
	if visibility == "" {
		visibility = "private"
	}

	video := &youtubeapi.Video{
		Snippet: &youtubeapi.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  musicCategoryID,
		},
		Status: &youtubeapi.VideoStatus{
			PrivacyStatus: visibility,
		},
	}

	f, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	u.logger.Info("uploading video", zap.String("title", meta.Title))

	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.Media(f)

	uploaded, err := call.Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
			return "", apperrs.Auth("YouTube token expired or invalid", err)
		}
		return "", apperrs.Provider("video upload failed", err)
	}
	if uploaded.Id == "" {
		return "", apperrs.Provider("upload succeeded but no video id was returned", nil)
	}

	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id)
	u.logger.Info("video uploaded",
		zap.String("video_id", uploaded.Id),
		zap.String("video_url", videoURL),
	)
	return videoURL, nil
}
