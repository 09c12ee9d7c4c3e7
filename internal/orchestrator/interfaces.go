package orchestrator

import (
	"context"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/models"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/providers/suno"
)

// AudioProvider starts generation jobs and fetches finished tracks. It
// intentionally matches the signatures of suno.Client so tests can swap in
// stubs without touching the pipeline.
type AudioProvider interface {
	StartJob(ctx context.Context, apiKey string, params suno.GenerationParams) (string, error)
	DownloadAudio(ctx context.Context, audioURL, destPath string) error
}

// ImageProvider produces the cover art synchronously.
type ImageProvider interface {
	Generate(ctx context.Context, apiKey, prompt, destPath string) error
}

// SheetClient is the slice of the spreadsheet backend the pipeline needs:
// row lookup at start and write-back at the end.
type SheetClient interface {
	FindPrompt(ctx context.Context, accessToken, sheetID, promptID string) (*models.PromptRecord, error)
	MarkPublished(ctx context.Context, accessToken, sheetID string, row int, videoURL string) error
}

// VideoHost uploads an assembled video and returns its public URL.
type VideoHost interface {
	Upload(ctx context.Context, accessToken, videoPath string, meta models.ResultMetadata) (string, error)
}

// VideoMuxer combines one still image and one audio track into a video
// trimmed to the audio's duration.
type VideoMuxer interface {
	Combine(ctx context.Context, imagePath, audioPath, outputPath string) error
}
