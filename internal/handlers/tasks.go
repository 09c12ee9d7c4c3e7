package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/apperrs"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/artifact"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/models"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/orchestrator"
)

// RunRequest is the body of POST /run. All credentials arrive per request;
// nothing is read from the process environment.
type RunRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
	SheetID     string `json:"sheet_id" binding:"required"`
	PromptID    string `json:"prompt_id" binding:"required"`
	SunoKey     string `json:"suno_key" binding:"required"`
	ImageKey    string `json:"image_key" binding:"required"`
	Delivery    string `json:"delivery"`
}

// Run handles POST /run: reads the prompt row, kicks off audio generation
// and registers a pending task for the caller to poll.
func (h *Handler) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrs.Request("invalid or incomplete request body: %v", err))
		return
	}

	taskID, err := h.orch.Start(c.Request.Context(), orchestrator.StartRequest{
		AccessToken: req.AccessToken,
		SheetID:     req.SheetID,
		PromptID:    req.PromptID,
		SunoKey:     req.SunoKey,
		ImageKey:    req.ImageKey,
		Delivery:    models.DeliveryStrategy(req.Delivery),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"status":  string(models.TaskStatusPending),
		"task_id": taskID,
	})
}

// SunoCallback handles the audio provider's webhook. Unknown jobs and
// intermediate notifications are acknowledged so the provider never sees an
// error for them; only a malformed final payload is rejected.
func (h *Handler) SunoCallback(c *gin.Context) {
	var env models.CallbackEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		h.respondError(c, apperrs.Request("malformed callback payload: %v", err))
		return
	}

	if err := h.orch.HandleCallback(c.Request.Context(), &env); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Status handles GET /status/:task_id. Ready results are delivered exactly
// once: the winning caller receives either the zip bundle or the published
// video URL, after which the task and its artifacts are gone.
func (h *Handler) Status(c *gin.Context) {
	taskID := c.Param("task_id")

	if task, ok := h.orch.TakeReady(taskID); ok {
		h.deliver(c, task)
		return
	}
	if msg, ok := h.orch.TakeError(taskID); ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  string(models.TaskStatusError),
			"message": msg,
		})
		return
	}
	if status, ok := h.orch.Snapshot(taskID); ok && status == models.TaskStatusPending {
		c.JSON(http.StatusAccepted, gin.H{"status": string(models.TaskStatusPending)})
		return
	}

	h.respondError(c, apperrs.NotFound("task %q not found", taskID))
}

// deliver sends a consumed ready task to the client and tears its backing
// artifacts down.
func (h *Handler) deliver(c *gin.Context, task *models.Task) {
	if task.Artifacts.AudioPath == "" {
		// Publish delivery: the pipeline already uploaded and cleaned up.
		c.JSON(http.StatusOK, gin.H{
			"status":    string(models.TaskStatusReady),
			"video_url": task.Metadata.VideoURL,
		})
		return
	}

	defer h.orch.ReleaseArtifacts(task)

	filename := fmt.Sprintf("%s.zip", task.ID)
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	if err := artifact.Bundle(c.Writer, task.Artifacts, task.Metadata); err != nil {
		// Headers are out; all we can do is log and drop the connection.
		h.logger.Error("bundle streaming failed",
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
	}
}

// publishMetadata is the decoded metadata_str field of POST /publish.
type publishMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Visibility  string   `json:"visibility"`
	AccessToken string   `json:"access_token"`
	SheetID     string   `json:"sheet_id"`
	PromptID    string   `json:"prompt_id"`
}

// Publish handles POST /publish: a client that assembled the video locally
// hands it back for upload and sheet write-back.
func (h *Handler) Publish(c *gin.Context) {
	file, err := c.FormFile("video_file")
	if err != nil {
		h.respondError(c, apperrs.Request("video_file is required: %v", err))
		return
	}

	metaStr := c.PostForm("metadata_str")
	if metaStr == "" {
		h.respondError(c, apperrs.Request("metadata_str is required"))
		return
	}
	var meta publishMetadata
	if err := json.Unmarshal([]byte(metaStr), &meta); err != nil {
		h.respondError(c, apperrs.Request("metadata_str is not valid JSON: %v", err))
		return
	}
	if meta.AccessToken == "" || meta.SheetID == "" || meta.PromptID == "" || meta.Title == "" {
		h.respondError(c, apperrs.Request("metadata_str must include access_token, sheet_id, prompt_id and title"))
		return
	}

	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".mp4"
	}
	videoPath := h.artifacts.TempPath(ext)
	if err := c.SaveUploadedFile(file, videoPath); err != nil {
		h.respondError(c, apperrs.Internal("failed to store uploaded video", err))
		return
	}
	defer h.artifacts.ReleaseAll(videoPath)

	videoURL, err := h.orch.Publish(c.Request.Context(), orchestrator.PublishRequest{
		VideoPath:   videoPath,
		AccessToken: meta.AccessToken,
		SheetID:     meta.SheetID,
		PromptID:    meta.PromptID,
		Meta: models.ResultMetadata{
			PromptID:    meta.PromptID,
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			Visibility:  meta.Visibility,
		},
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"video_url": videoURL,
	})
}
