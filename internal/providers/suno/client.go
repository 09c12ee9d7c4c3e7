package suno

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/apperrs"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/config"
)

// Client talks to the Suno-compatible audio generation API. The API key is
// supplied per call; the client only carries the endpoint and HTTP plumbing.
type Client struct {
	baseURL   string
	startHTTP *http.Client
	mediaHTTP *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// GenerationParams describes one audio generation job.
type GenerationParams struct {
	Prompt       string
	CustomMode   bool
	Style        string
	Title        string
	Instrumental bool
	CallbackURL  string
}

type generateRequest struct {
	Prompt       string `json:"prompt"`
	CustomMode   bool   `json:"customMode"`
	Style        string `json:"style,omitempty"`
	Title        string `json:"title,omitempty"`
	Instrumental bool   `json:"instrumental"`
	CallBackURL  string `json:"callBackUrl"`
}

type generateResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

// NewClient creates a Suno client. startTimeout bounds job submissions,
// downloadTimeout bounds audio fetches which can take minutes.
func NewClient(cfg config.SunoConfig, timeouts config.TimeoutsConfig, logger *zap.Logger) *Client {
	perMin := cfg.StartRatePerMin
	if perMin <= 0 {
		perMin = 10
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		startHTTP: &http.Client{Timeout: timeouts.ProviderStart},
		mediaHTTP: &http.Client{Timeout: timeouts.ArtifactDownload},
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
		logger:    logger,
	}
}

// StartJob submits a generation job and returns the provider-issued job id.
// The provider will notify params.CallbackURL as the job progresses; only
// the "complete" callback carries the final artifact.
func (c *Client) StartJob(ctx context.Context, apiKey string, params GenerationParams) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(generateRequest{
		Prompt:       params.Prompt,
		CustomMode:   params.CustomMode,
		Style:        params.Style,
		Title:        params.Title,
		Instrumental: params.Instrumental,
		CallBackURL:  params.CallbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/generate", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.startHTTP.Do(req)
	if err != nil {
		return "", apperrs.Provider("audio provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", apperrs.Auth("audio provider rejected the API key", nil)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", apperrs.Provider(fmt.Sprintf("audio provider returned status %d: %s", resp.StatusCode, string(b)), nil)
	}

	var apiResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", apperrs.Provider("malformed response from audio provider", err)
	}
	if apiResp.Code != 200 && apiResp.Code != 0 {
		return "", apperrs.Provider(fmt.Sprintf("audio provider error %d: %s", apiResp.Code, apiResp.Msg), nil)
	}
	if apiResp.Data.TaskID == "" {
		return "", apperrs.Provider("audio provider returned no job id", nil)
	}

	c.logger.Info("audio generation job started", zap.String("job_id", apiResp.Data.TaskID))
	return apiResp.Data.TaskID, nil
}

// DownloadAudio fetches the generated track to destPath.
func (c *Client) DownloadAudio(ctx context.Context, audioURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}

	resp, err := c.mediaHTTP.Do(req)
	if err != nil {
		return apperrs.Provider("audio download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrs.Provider(fmt.Sprintf("audio download returned status %d", resp.StatusCode), nil)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return apperrs.Provider("audio download interrupted", err)
	}

	c.logger.Info("audio downloaded",
		zap.String("path", destPath),
		zap.Int64("bytes", n),
	)
	return nil
}
