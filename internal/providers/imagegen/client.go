package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/apperrs"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/config"
)

// Client talks to an OpenAI-compatible image generation endpoint to produce
// the video's cover art. The key is supplied per call.
type Client struct {
	baseURL   string
	size      string
	genHTTP   *http.Client
	mediaHTTP *http.Client
	logger    *zap.Logger
}

type generationRequest struct {
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type generationResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient creates an image generation client.
func NewClient(cfg config.ImageGenConfig, timeouts config.TimeoutsConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		size:      cfg.Size,
		genHTTP:   &http.Client{Timeout: timeouts.ArtifactDownload},
		mediaHTTP: &http.Client{Timeout: timeouts.ArtifactDownload},
		logger:    logger,
	}
}

// Generate produces one image for the prompt and writes it to destPath.
// Image providers respond synchronously, so unlike audio generation there is
// no callback leg here.
func (c *Client) Generate(ctx context.Context, apiKey, prompt, destPath string) error {
	body, err := json.Marshal(generationRequest{
		Prompt:         prompt,
		N:              1,
		Size:           c.size,
		ResponseFormat: "url",
	})
	if err != nil {
		return fmt.Errorf("marshal image request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/images/generations", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.genHTTP.Do(req)
	if err != nil {
		return apperrs.Provider("image provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return apperrs.Auth("image provider rejected the API key", nil)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrs.Provider(fmt.Sprintf("image provider returned status %d: %s", resp.StatusCode, string(b)), nil)
	}

	var apiResp generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return apperrs.Provider("malformed response from image provider", err)
	}
	if apiResp.Error != nil {
		return apperrs.Provider("image provider error: "+apiResp.Error.Message, nil)
	}
	if len(apiResp.Data) == 0 || apiResp.Data[0].URL == "" {
		return apperrs.Provider("image provider returned no image URL", nil)
	}

	return c.download(ctx, apiResp.Data[0].URL, destPath)
}

func (c *Client) download(ctx context.Context, imageURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("create image download request: %w", err)
	}

	resp, err := c.mediaHTTP.Do(req)
	if err != nil {
		return apperrs.Provider("image download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrs.Provider(fmt.Sprintf("image download returned status %d", resp.StatusCode), nil)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return apperrs.Provider("image download interrupted", err)
	}

	c.logger.Info("cover image downloaded",
		zap.String("path", destPath),
		zap.Int64("bytes", n),
	)
	return nil
}
