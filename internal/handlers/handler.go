package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/apperrs"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/artifact"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/models"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/orchestrator"
)

// PromptSheet is the slice of the spreadsheet backend the prompt-management
// endpoints need beyond what the orchestrator already covers.
type PromptSheet interface {
	FindPrompt(ctx context.Context, accessToken, sheetID, promptID string) (*models.PromptRecord, error)
	ListUnpublished(ctx context.Context, accessToken, sheetID string) ([]*models.PromptRecord, error)
	WriteCell(ctx context.Context, accessToken, sheetID string, row, col int, value string) error
	DeleteRow(ctx context.Context, accessToken, sheetID string, row int) error
}

// Handler groups the HTTP endpoints around the orchestrator.
type Handler struct {
	orch      *orchestrator.Orchestrator
	sheets    PromptSheet
	artifacts *artifact.Store
	logger    *zap.Logger
}

// New creates the handler set.
func New(orch *orchestrator.Orchestrator, sheets PromptSheet, artifacts *artifact.Store, logger *zap.Logger) *Handler {
	return &Handler{
		orch:      orch,
		sheets:    sheets,
		artifacts: artifacts,
		logger:    logger,
	}
}

// respondError maps an error chain onto the taxonomy: a stable category
// plus a human-readable message. Stack traces and wrapped causes stay in
// the logs.
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := apperrs.KindOf(err)
	if kind == apperrs.KindInternal {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		h.logger.Warn("request rejected",
			zap.String("path", c.FullPath()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
	c.JSON(apperrs.HTTPStatus(kind), gin.H{
		"error":   string(kind),
		"message": apperrs.MessageOf(err),
	})
}
