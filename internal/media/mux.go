package media

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/apperrs"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/config"
)

// Muxer combines a still image and an audio track into an upload-ready mp4
// by shelling out to ffmpeg. A non-zero exit is fatal for the task.
type Muxer struct {
	cfg    config.FFmpegConfig
	logger *zap.Logger
}

// NewMuxer creates a muxer around the configured ffmpeg binary.
func NewMuxer(cfg config.FFmpegConfig, logger *zap.Logger) *Muxer {
	return &Muxer{cfg: cfg, logger: logger}
}

// Combine writes the video to outputPath. The image is held as a static
// frame for the audio's full duration and the output uses H.264/AAC with
// yuv420p for wide player compatibility.
func (m *Muxer) Combine(ctx context.Context, imagePath, audioPath, outputPath string) error {
	args := m.buildArgs(imagePath, audioPath, outputPath)

	m.logger.Info("assembling video",
		zap.String("image", imagePath),
		zap.String("audio", audioPath),
		zap.String("output", outputPath),
	)

	cmd := exec.CommandContext(ctx, m.cfg.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// No partial output may survive a failed mux.
		os.Remove(outputPath)
		m.logger.Error("ffmpeg failed",
			zap.Error(err),
			zap.String("stderr", tail(stderr.String(), 2048)),
		)
		return apperrs.MediaTool("video assembly failed: "+tail(stderr.String(), 256), err)
	}

	stat, err := os.Stat(outputPath)
	if err != nil {
		return apperrs.MediaTool("ffmpeg produced no output file", err)
	}
	if stat.Size() == 0 {
		os.Remove(outputPath)
		return apperrs.MediaTool("ffmpeg produced an empty output file", nil)
	}

	m.logger.Info("video assembled",
		zap.String("output", outputPath),
		zap.Int64("size", stat.Size()),
	)
	return nil
}

func (m *Muxer) buildArgs(imagePath, audioPath, outputPath string) []string {
	return []string{
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", m.cfg.AudioBitrate,
		"-pix_fmt", "yuv420p",
		"-shortest",
		"-y",
		outputPath,
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
