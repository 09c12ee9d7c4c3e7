package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/apperrs"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/models"
)

// editableColumns maps prompt-row field names accepted by /update_prompt to
// their 1-based sheet columns. The id column is deliberately not editable.
var editableColumns = map[string]int{
	"prompt":       models.ColPrompt + 1,
	"image_prompt": models.ColImagePrompt + 1,
	"title":        models.ColTitle + 1,
	"description":  models.ColDescription + 1,
	"tags":         models.ColTags + 1,
	"mode":         models.ColMode + 1,
	"style":        models.ColStyle + 1,
	"song_title":   models.ColSongTitle + 1,
	"visibility":   models.ColVisibility + 1,
	"video_url":    models.ColVideoURL + 1,
	"status":       models.ColStatus + 1,
}

// ListPrompts handles GET /prompts: prompt rows whose video URL column is
// still empty, i.e. not yet published.
func (h *Handler) ListPrompts(c *gin.Context) {
	accessToken := c.Query("access_token")
	sheetID := c.Query("sheet_id")
	if accessToken == "" || sheetID == "" {
		h.respondError(c, apperrs.Request("access_token and sheet_id query parameters are required"))
		return
	}

	records, err := h.sheets.ListUnpublished(c.Request.Context(), accessToken, sheetID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	prompts := make([]gin.H, 0, len(records))
	for _, rec := range records {
		prompts = append(prompts, gin.H{
			"id":           rec.ID,
			"prompt":       rec.Prompt,
			"image_prompt": rec.ImagePrompt,
			"title":        rec.Title,
			"mode":         string(rec.Mode),
			"row":          rec.Row,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"prompts": prompts,
	})
}

// UpdatePromptRequest is the body of POST /update_prompt.
type UpdatePromptRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
	SheetID     string `json:"sheet_id" binding:"required"`
	PromptID    string `json:"prompt_id" binding:"required"`
	Field       string `json:"field" binding:"required"`
	Value       string `json:"value"`
}

// UpdatePrompt handles POST /update_prompt: writes one field of a prompt row.
func (h *Handler) UpdatePrompt(c *gin.Context) {
	var req UpdatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrs.Request("invalid or incomplete request body: %v", err))
		return
	}

	col, ok := editableColumns[req.Field]
	if !ok {
		h.respondError(c, apperrs.Request("unknown prompt field %q", req.Field))
		return
	}

	rec, err := h.sheets.FindPrompt(c.Request.Context(), req.AccessToken, req.SheetID, req.PromptID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.sheets.WriteCell(c.Request.Context(), req.AccessToken, req.SheetID, rec.Row, col, req.Value); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeletePromptRequest is the body of POST /delete_prompt.
type DeletePromptRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
	SheetID     string `json:"sheet_id" binding:"required"`
	PromptID    string `json:"prompt_id" binding:"required"`
}

// DeletePrompt handles POST /delete_prompt: removes a prompt row.
func (h *Handler) DeletePrompt(c *gin.Context) {
	var req DeletePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrs.Request("invalid or incomplete request body: %v", err))
		return
	}

	rec, err := h.sheets.FindPrompt(c.Request.Context(), req.AccessToken, req.SheetID, req.PromptID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.sheets.DeleteRow(c.Request.Context(), req.AccessToken, req.SheetID, rec.Row); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
