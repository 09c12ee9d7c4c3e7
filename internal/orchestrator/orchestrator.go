package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/apperrs"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/artifact"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/models"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/providers/suno"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/taskstore"
)

// Orchestrator owns the task state machine. It starts generation jobs,
// correlates provider callbacks back to pending tasks and drives the
// post-callback pipeline (download -> image -> optionally mux, upload,
// write-back). All asynchronous behavior is externally driven; there is no
// internal polling loop.
type Orchestrator struct {
	store     *taskstore.Store
	artifacts *artifact.Store
	audio     AudioProvider
	images    ImageProvider
	sheets    SheetClient
	host      VideoHost
	muxer     VideoMuxer

	callbackURL string
	logger      *zap.Logger
}

// New wires the orchestrator. callbackURL is the externally reachable
// webhook endpoint handed to the audio provider with every job.
func New(
	store *taskstore.Store,
	artifacts *artifact.Store,
	audio AudioProvider,
	images ImageProvider,
	sheets SheetClient,
	host VideoHost,
	muxer VideoMuxer,
	callbackURL string,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:       store,
		artifacts:   artifacts,
		audio:       audio,
		images:      images,
		sheets:      sheets,
		host:        host,
		muxer:       muxer,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// StartRequest carries the credentials and coordinates for one generation.
type StartRequest struct {
	AccessToken string
	SheetID     string
	PromptID    string
	SunoKey     string
	ImageKey    string
	Delivery    models.DeliveryStrategy
}

// Start reads the prompt row, validates it, submits the audio generation job
// and registers a pending task. Validation failures surface before any
// provider call is made.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (string, error) {
	rec, err := o.sheets.FindPrompt(ctx, req.AccessToken, req.SheetID, req.PromptID)
	if err != nil {
		return "", err
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}

	delivery := req.Delivery
	if delivery == "" {
		delivery = models.DeliveryBundle
	}
	if delivery != models.DeliveryBundle && delivery != models.DeliveryPublish {
		return "", apperrs.Request("unknown delivery strategy %q", delivery)
	}

	task := &models.Task{
		ID:     uuid.New().String(),
		Status: models.TaskStatusPending,
		Context: models.TaskContext{
			Record:      rec,
			AccessToken: req.AccessToken,
			SheetID:     req.SheetID,
			SunoKey:     req.SunoKey,
			ImageKey:    req.ImageKey,
			Delivery:    delivery,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := o.store.Put(task); err != nil {
		return "", apperrs.Internal("failed to register task", err)
	}

	params := suno.GenerationParams{
		Prompt:      rec.Prompt,
		CustomMode:  rec.Mode == models.ModeCustom,
		CallbackURL: o.callbackURL,
	}
	if rec.Mode == models.ModeCustom {
		params.Style = rec.Style
		params.Title = rec.SongTitle
	}

	jobID, err := o.audio.StartJob(ctx, req.SunoKey, params)
	if err != nil {
		o.store.Remove(task.ID)
		return "", err
	}
	if err := o.store.BindJob(task.ID, jobID); err != nil {
		return "", apperrs.Internal("failed to bind provider job", err)
	}

	o.logger.Info("task started",
		zap.String("task_id", task.ID),
		zap.String("job_id", jobID),
		zap.String("prompt_id", rec.ID),
		zap.String("mode", string(rec.Mode)),
		zap.String("delivery", string(delivery)),
	)
	return task.ID, nil
}

// HandleCallback processes one provider webhook delivery. Intermediate
// notifications and unknown job ids are acknowledged no-ops. A malformed
// final payload is a request error; every failure after the callback is
// accepted lands in the task's error state instead, because the provider's
// HTTP response must stay a plain acknowledgment.
func (o *Orchestrator) HandleCallback(ctx context.Context, env *models.CallbackEnvelope) error {
	if env == nil || env.Data == nil || env.Data.TaskID == "" {
		return apperrs.Request("callback payload missing task id")
	}

	taskID, ok := o.store.ResolveJobID(env.Data.TaskID)
	if !ok {
		o.logger.Info("callback for unknown job acknowledged",
			zap.String("job_id", env.Data.TaskID),
			zap.String("callback_type", env.Data.CallbackType),
		)
		return nil
	}

	if !env.IsFinal() {
		o.logger.Info("intermediate callback acknowledged",
			zap.String("task_id", taskID),
			zap.String("callback_type", env.Data.CallbackType),
		)
		return nil
	}

	audioURL := env.AudioURL()
	if audioURL == "" {
		return apperrs.Request("final callback carries no audio URL")
	}

	tctx, ok := o.store.Context(taskID)
	if !ok {
		return nil
	}

	// The webhook sender may hang up as soon as it has delivered the
	// payload; the pipeline must not die with its connection. Each stage
	// still carries its own client-side timeout.
	o.runPipeline(context.WithoutCancel(ctx), taskID, tctx, audioURL)
	return nil
}

// runPipeline executes the strictly ordered post-callback stages. Any
// stage's failure aborts the rest, releases partial artifacts and parks the
// task in the error state for the polling client to discover.
func (o *Orchestrator) runPipeline(ctx context.Context, taskID string, tctx models.TaskContext, audioURL string) {
	rec := tctx.Record
	scope := o.artifacts.NewScope()
	defer scope.Release()

	fail := func(stage string, err error) {
		o.logger.Error("pipeline stage failed",
			zap.String("task_id", taskID),
			zap.String("stage", stage),
			zap.Error(err),
		)
		scope.Release()
		if serr := o.store.Fail(taskID, apperrs.MessageOf(err)); serr != nil {
			o.logger.Warn("could not record task failure",
				zap.String("task_id", taskID),
				zap.Error(serr),
			)
		}
	}

	audioPath := scope.TempPath(".mp3")
	if err := o.audio.DownloadAudio(ctx, audioURL, audioPath); err != nil {
		fail("download_audio", err)
		return
	}

	imagePrompt := rec.ImagePrompt
	if imagePrompt == "" {
		imagePrompt = rec.Prompt
	}
	imagePath := scope.TempPath(".png")
	if err := o.images.Generate(ctx, tctx.ImageKey, imagePrompt, imagePath); err != nil {
		fail("generate_image", err)
		return
	}

	meta := models.ResultMetadata{
		PromptID:    rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Tags:        rec.Tags,
		Visibility:  rec.Visibility,
		SongTitle:   rec.SongTitle,
	}

	if tctx.Delivery == models.DeliveryPublish {
		videoPath := scope.TempPath(".mp4")
		if err := o.muxer.Combine(ctx, imagePath, audioPath, videoPath); err != nil {
			fail("assemble_video", err)
			return
		}
		videoURL, err := o.host.Upload(ctx, tctx.AccessToken, videoPath, meta)
		if err != nil {
			fail("upload_video", err)
			return
		}
		if err := o.sheets.MarkPublished(ctx, tctx.AccessToken, tctx.SheetID, rec.Row, videoURL); err != nil {
			fail("write_back", err)
			return
		}
		meta.VideoURL = videoURL
		if err := o.store.Complete(taskID, models.TaskArtifacts{}, meta); err != nil {
			o.logger.Warn("task vanished before completion",
				zap.String("task_id", taskID),
				zap.Error(err),
			)
		}
		o.logger.Info("task published",
			zap.String("task_id", taskID),
			zap.String("video_url", videoURL),
		)
		return
	}

	artifacts := models.TaskArtifacts{AudioPath: audioPath, ImagePath: imagePath}
	if err := o.store.Complete(taskID, artifacts, meta); err != nil {
		// Nobody is left to consume the files, so drop them here.
		fail("complete", err)
		return
	}
	scope.Detach()
	o.logger.Info("task ready for pickup", zap.String("task_id", taskID))
}

// Snapshot reports a task's current visible state.
func (o *Orchestrator) Snapshot(taskID string) (models.TaskStatus, bool) {
	return o.store.Get(taskID)
}

// TakeError consumes an errored task, returning its message. One-shot.
func (o *Orchestrator) TakeError(taskID string) (string, bool) {
	task, ok := o.store.TakeError(taskID)
	if !ok {
		return "", false
	}
	return task.ErrorMsg, true
}

// TakeReady consumes a ready task. Exactly one concurrent caller wins; the
// caller owns the returned task's artifacts and must release them via
// ReleaseArtifacts once delivered.
func (o *Orchestrator) TakeReady(taskID string) (*models.Task, bool) {
	return o.store.TakeReady(taskID)
}

// ReleaseArtifacts deletes a consumed task's backing files.
func (o *Orchestrator) ReleaseArtifacts(task *models.Task) {
	o.artifacts.ReleaseAll(task.Artifacts.AudioPath, task.Artifacts.ImagePath)
}

// PublishRequest carries a client-assembled video and its metadata.
type PublishRequest struct {
	VideoPath   string
	AccessToken string
	SheetID     string
	PromptID    string
	Meta        models.ResultMetadata
}

// Publish uploads a finished video and records the URL back into the sheet.
// Serves the client-side-assembly flow where the client muxed the bundle
// itself.
func (o *Orchestrator) Publish(ctx context.Context, req PublishRequest) (string, error) {
	videoURL, err := o.host.Upload(ctx, req.AccessToken, req.VideoPath, req.Meta)
	if err != nil {
		return "", err
	}

	rec, err := o.sheets.FindPrompt(ctx, req.AccessToken, req.SheetID, req.PromptID)
	if err != nil {
		return "", err
	}
	if err := o.sheets.MarkPublished(ctx, req.AccessToken, req.SheetID, rec.Row, videoURL); err != nil {
		return "", err
	}

	o.logger.Info("client-assembled video published",
		zap.String("prompt_id", req.PromptID),
		zap.String("video_url", videoURL),
	)
	return videoURL, nil
}
