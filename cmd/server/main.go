package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/artifact"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/config"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/handlers"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/media"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/orchestrator"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/providers/imagegen"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/providers/sheets"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/providers/suno"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/providers/youtube"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/router"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/taskstore"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting AutoLofiUploader backend...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	artifacts := artifact.NewStore(cfg.Artifacts.Dir, logger)
	if err := artifacts.EnsureDir(); err != nil {
		logger.Fatal("Failed to prepare artifact directory", zap.Error(err))
	}

	store := taskstore.New()
	sunoClient := suno.NewClient(cfg.Suno, cfg.Timeouts, logger)
	imageClient := imagegen.NewClient(cfg.ImageGen, cfg.Timeouts, logger)
	sheetClient := sheets.NewClient(logger)
	uploader := youtube.NewUploader(logger)
	muxer := media.NewMuxer(cfg.FFmpeg, logger)

	callbackURL := fmt.Sprintf("%s/suno_callback", cfg.Server.CallbackBaseURL)
	orch := orchestrator.New(store, artifacts, sunoClient, imageClient, sheetClient, uploader, muxer, callbackURL, logger)

	h := handlers.New(orch, sheetClient, artifacts, logger)
	r := router.New(h, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: r,
		// No write timeout: status responses stream multi-megabyte bundles
		// and callback handling downloads media inline.
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// In-flight tasks live only in memory and are lost here. Accepted
	// limitation: the service is best-effort by design.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
