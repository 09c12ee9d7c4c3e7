package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service. Provider API keys and
// access tokens are supplied per-request and never read from the
// environment; only endpoints, paths and timeouts live here.
type Config struct {
	Server    ServerConfig
	Suno      SunoConfig
	ImageGen  ImageGenConfig
	FFmpeg    FFmpegConfig
	Artifacts ArtifactsConfig
	Timeouts  TimeoutsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
	// CallbackBaseURL is the externally reachable base URL the audio
	// provider posts its webhook to.
	CallbackBaseURL string
}

// SunoConfig holds the audio generation provider endpoint.
type SunoConfig struct {
	BaseURL string
	// StartRatePerMin caps job submissions to stay inside API quotas.
	StartRatePerMin int
}

// ImageGenConfig holds the cover image provider endpoint.
type ImageGenConfig struct {
	BaseURL string
	Size    string
}

// FFmpegConfig holds the muxing tool configuration.
type FFmpegConfig struct {
	Path         string
	AudioBitrate string
}

// ArtifactsConfig holds temp-file settings.
type ArtifactsConfig struct {
	Dir string
}

// TimeoutsConfig holds outbound call deadlines. Provider start calls are
// short; artifact downloads are long since media files can be large.
type TimeoutsConfig struct {
	ProviderStart    time.Duration
	ArtifactDownload time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	viper.SetEnvPrefix("")
	viper.AutomaticEnv()

	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("CALLBACK_BASE_URL", "http://localhost:8080")
	viper.SetDefault("SUNO_API_BASE", "https://api.sunoapi.org")
	viper.SetDefault("SUNO_START_RATE_PER_MIN", 10)
	viper.SetDefault("IMAGE_API_BASE", "https://api.openai.com")
	viper.SetDefault("IMAGE_SIZE", "1024x1024")
	viper.SetDefault("FFMPEG_PATH", "ffmpeg")
	viper.SetDefault("FFMPEG_AUDIO_BITRATE", "192k")
	viper.SetDefault("ARTIFACT_DIR", "/tmp")
	viper.SetDefault("PROVIDER_START_TIMEOUT", "30s")
	viper.SetDefault("ARTIFACT_DOWNLOAD_TIMEOUT", "5m")

	cfg := &Config{
		Server: ServerConfig{
			Host:            viper.GetString("HOST"),
			Port:            viper.GetInt("PORT"),
			CallbackBaseURL: viper.GetString("CALLBACK_BASE_URL"),
		},
		Suno: SunoConfig{
			BaseURL:         viper.GetString("SUNO_API_BASE"),
			StartRatePerMin: viper.GetInt("SUNO_START_RATE_PER_MIN"),
		},
		ImageGen: ImageGenConfig{
			BaseURL: viper.GetString("IMAGE_API_BASE"),
			Size:    viper.GetString("IMAGE_SIZE"),
		},
		FFmpeg: FFmpegConfig{
			Path:         viper.GetString("FFMPEG_PATH"),
			AudioBitrate: viper.GetString("FFMPEG_AUDIO_BITRATE"),
		},
		Artifacts: ArtifactsConfig{
			Dir: viper.GetString("ARTIFACT_DIR"),
		},
		Timeouts: TimeoutsConfig{
			ProviderStart:    viper.GetDuration("PROVIDER_START_TIMEOUT"),
			ArtifactDownload: viper.GetDuration("ARTIFACT_DOWNLOAD_TIMEOUT"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be a valid port number, got %d", c.Server.Port)
	}
	if c.Server.CallbackBaseURL == "" {
		return fmt.Errorf("CALLBACK_BASE_URL is required")
	}
	if c.Suno.BaseURL == "" {
		return fmt.Errorf("SUNO_API_BASE is required")
	}
	if c.ImageGen.BaseURL == "" {
		return fmt.Errorf("IMAGE_API_BASE is required")
	}
	if c.FFmpeg.Path == "" {
		return fmt.Errorf("FFMPEG_PATH is required")
	}
	if c.Timeouts.ProviderStart <= 0 || c.Timeouts.ArtifactDownload <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}
