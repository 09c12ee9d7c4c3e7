package orchestrator

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/apperrs"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/artifact"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/models"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/providers/suno"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/taskstore"
)

type stubAudio struct {
	jobID         string
	startErr      error
	startCalls    int
	lastParams    suno.GenerationParams
	downloadErr   error
	downloadCalls int
	lastDest      string
}

func (s *stubAudio) StartJob(ctx context.Context, apiKey string, params suno.GenerationParams) (string, error) {
	s.startCalls++
	s.lastParams = params
	if s.startErr != nil {
		return "", s.startErr
	}
	return s.jobID, nil
}

func (s *stubAudio) DownloadAudio(ctx context.Context, audioURL, destPath string) error {
	s.downloadCalls++
	s.lastDest = destPath
	if err := ctx.Err(); err != nil {
		return apperrs.Provider("audio download failed", err)
	}
	if s.downloadErr != nil {
		return s.downloadErr
	}
	return os.WriteFile(destPath, []byte("fake mp3"), 0o644)
}

type stubImages struct {
	err      error
	calls    int
	lastDest string
}

func (s *stubImages) Generate(ctx context.Context, apiKey, prompt, destPath string) error {
	s.calls++
	s.lastDest = destPath
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(destPath, []byte("fake png"), 0o644)
}

type stubSheets struct {
	rec          *models.PromptRecord
	findErr      error
	publishedURL string
	publishedRow int
	publishErr   error
}

func (s *stubSheets) FindPrompt(ctx context.Context, accessToken, sheetID, promptID string) (*models.PromptRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.rec, nil
}

func (s *stubSheets) MarkPublished(ctx context.Context, accessToken, sheetID string, row int, videoURL string) error {
	if s.publishErr != nil {
		return s.publishErr
	}
	s.publishedRow = row
	s.publishedURL = videoURL
	return nil
}

type stubHost struct {
	url   string
	err   error
	calls int
}

func (s *stubHost) Upload(ctx context.Context, accessToken, videoPath string, meta models.ResultMetadata) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

type stubMuxer struct {
	err   error
	calls int
}

func (s *stubMuxer) Combine(ctx context.Context, imagePath, audioPath, outputPath string) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(outputPath, []byte("fake mp4"), 0o644)
}

type fixture struct {
	orch   *Orchestrator
	store  *taskstore.Store
	audio  *stubAudio
	images *stubImages
	sheets *stubSheets
	host   *stubHost
	muxer  *stubMuxer
}

func simpleRecord() *models.PromptRecord {
	return models.NewPromptRecord(2, []string{
		"id-1", "rainy night lofi", "a cozy room at night", "Rainy Lofi Mix",
		"1 hour of rain", "lofi, rain", "simple", "", "", "unlisted",
	})
}

func customRecord() *models.PromptRecord {
	return models.NewPromptRecord(2, []string{
		"id-2", "lyrics about rain", "neon city", "Custom Mix",
		"desc", "lofi", "custom", "lofi hip hop", "Midnight Rain", "private",
	})
}

func newFixture(t *testing.T, rec *models.PromptRecord) *fixture {
	t.Helper()
	f := &fixture{
		store:  taskstore.New(),
		audio:  &stubAudio{jobID: "job-42"},
		images: &stubImages{},
		sheets: &stubSheets{rec: rec},
		host:   &stubHost{url: "https://www.youtube.com/watch?v=abc123"},
		muxer:  &stubMuxer{},
	}
	artifacts := artifact.NewStore(t.TempDir(), zap.NewNop())
	f.orch = New(f.store, artifacts, f.audio, f.images, f.sheets, f.host, f.muxer,
		"http://localhost:8080/suno_callback", zap.NewNop())
	return f
}

func startRequest() StartRequest {
	return StartRequest{
		AccessToken: "tok",
		SheetID:     "sheet-1",
		PromptID:    "id-1",
		SunoKey:     "suno-key",
		ImageKey:    "image-key",
	}
}

func finalCallback(jobID, audioURL, streamURL string) *models.CallbackEnvelope {
	return &models.CallbackEnvelope{
		Code: 200,
		Data: &models.CallbackData{
			TaskID:       jobID,
			CallbackType: models.CallbackTypeComplete,
			Data: []models.CallbackItem{
				{AudioURL: audioURL, StreamAudioURL: streamURL},
			},
		},
	}
}

func TestStartRegistersPendingTask(t *testing.T) {
	f := newFixture(t, simpleRecord())

	taskID, err := f.orch.Start(context.Background(), startRequest())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if status, ok := f.orch.Snapshot(taskID); !ok || status != models.TaskStatusPending {
		t.Fatalf("Snapshot = %v %v, want pending", status, ok)
	}
	if f.audio.startCalls != 1 {
		t.Fatalf("StartJob calls = %d, want 1", f.audio.startCalls)
	}
	if f.audio.lastParams.CustomMode {
		t.Error("simple mode must not set customMode")
	}
	if f.audio.lastParams.CallbackURL != "http://localhost:8080/suno_callback" {
		t.Errorf("callback URL = %q", f.audio.lastParams.CallbackURL)
	}
	if id, ok := f.store.ResolveJobID("job-42"); !ok || id != taskID {
		t.Fatalf("job id not bound: %q %v", id, ok)
	}
}

func TestStartCustomModePassesStyleAndTitle(t *testing.T) {
	f := newFixture(t, customRecord())

	if _, err := f.orch.Start(context.Background(), startRequest()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	p := f.audio.lastParams
	if !p.CustomMode || p.Style != "lofi hip hop" || p.Title != "Midnight Rain" {
		t.Errorf("custom params not forwarded: %+v", p)
	}
}

func TestStartCustomModeValidationPrecedesProviderCall(t *testing.T) {
	rec := customRecord()
	rec.Style = ""
	f := newFixture(t, rec)

	_, err := f.orch.Start(context.Background(), startRequest())
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if apperrs.KindOf(err) != apperrs.KindRequest {
		t.Fatalf("expected a request error, got %v", err)
	}
	if f.audio.startCalls != 0 {
		t.Fatal("validation failures must not reach the audio provider")
	}
	if f.store.Len() != 0 {
		t.Fatal("no task may be registered on validation failure")
	}
}

func TestStartProviderFailureLeavesNoTask(t *testing.T) {
	f := newFixture(t, simpleRecord())
	f.audio.startErr = apperrs.Provider("quota exceeded", nil)

	if _, err := f.orch.Start(context.Background(), startRequest()); err == nil {
		t.Fatal("expected the provider error to surface")
	}
	if f.store.Len() != 0 {
		t.Fatal("failed start must not leak a pending task")
	}
}

func TestCallbackUnknownJobIsAcknowledged(t *testing.T) {
	f := newFixture(t, simpleRecord())

	env := finalCallback("job-unknown", "https://cdn/a.mp3", "")
	if err := f.orch.HandleCallback(context.Background(), env); err != nil {
		t.Fatalf("unknown job callback must be a no-op, got %v", err)
	}
	if f.store.Len() != 0 {
		t.Fatal("unknown callbacks must never create tasks")
	}
	if f.audio.downloadCalls != 0 {
		t.Fatal("unknown callbacks must not trigger downloads")
	}
}

func TestIntermediateCallbacksNeverMutateState(t *testing.T) {
	f := newFixture(t, simpleRecord())
	taskID, err := f.orch.Start(context.Background(), startRequest())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		for _, typ := range []string{"text", "first"} {
			env := &models.CallbackEnvelope{Data: &models.CallbackData{
				TaskID:       "job-42",
				CallbackType: typ,
				Data:         []models.CallbackItem{{StreamAudioURL: "https://cdn/s.mp3"}},
			}}
			if err := f.orch.HandleCallback(context.Background(), env); err != nil {
				t.Fatalf("intermediate callback errored: %v", err)
			}
		}
	}

	if status, _ := f.orch.Snapshot(taskID); status != models.TaskStatusPending {
		t.Fatalf("status = %v, want pending after intermediate callbacks", status)
	}
	if f.audio.downloadCalls != 0 {
		t.Fatal("intermediate callbacks must not start the pipeline")
	}
}

func TestFinalCallbackStreamURLFallback(t *testing.T) {
	f := newFixture(t, simpleRecord())
	taskID, err := f.orch.Start(context.Background(), startRequest())
	if err != nil {
		t.Fatal(err)
	}

	env := finalCallback("job-42", "", "https://cdn/stream.mp3")
	if err := f.orch.HandleCallback(context.Background(), env); err != nil {
		t.Fatalf("HandleCallback failed: %v", err)
	}

	task, ok := f.orch.TakeReady(taskID)
	if !ok {
		t.Fatal("task should be ready")
	}
	defer f.orch.ReleaseArtifacts(task)

	if task.Metadata.Title != "Rainy Lofi Mix" {
		t.Errorf("metadata title = %q", task.Metadata.Title)
	}
	for _, p := range []string{task.Artifacts.AudioPath, task.Artifacts.ImagePath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("artifact %q missing: %v", p, err)
		}
	}
}

// The provider's webhook client may drop the connection as soon as the
// payload is delivered. The request context dies with it; the pipeline
// must keep running and finish the task anyway.
func TestPipelineSurvivesWebhookSenderDisconnect(t *testing.T) {
	f := newFixture(t, simpleRecord())
	taskID, err := f.orch.Start(context.Background(), startRequest())
	if err != nil {
		t.Fatal(err)
	}

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel() // sender already hung up

	env := finalCallback("job-42", "https://cdn/a.mp3", "")
	if err := f.orch.HandleCallback(reqCtx, env); err != nil {
		t.Fatalf("HandleCallback failed: %v", err)
	}

	task, ok := f.orch.TakeReady(taskID)
	if !ok {
		status, _ := f.orch.Snapshot(taskID)
		t.Fatalf("task should be ready despite the disconnect, status = %v", status)
	}
	f.orch.ReleaseArtifacts(task)
}

func TestFinalCallbackWithoutAudioURLIsMalformed(t *testing.T) {
	f := newFixture(t, simpleRecord())
	if _, err := f.orch.Start(context.Background(), startRequest()); err != nil {
		t.Fatal(err)
	}

	env := &models.CallbackEnvelope{Data: &models.CallbackData{
		TaskID:       "job-42",
		CallbackType: models.CallbackTypeComplete,
	}}
	err := f.orch.HandleCallback(context.Background(), env)
	if err == nil || apperrs.KindOf(err) != apperrs.KindRequest {
		t.Fatalf("expected a request error for a final callback without audio, got %v", err)
	}
}

func TestPipelineFailureReleasesPartialArtifacts(t *testing.T) {
	f := newFixture(t, simpleRecord())
	taskID, err := f.orch.Start(context.Background(), startRequest())
	if err != nil {
		t.Fatal(err)
	}
	f.images.err = apperrs.Provider("image provider returned status 500", nil)

	env := finalCallback("job-42", "https://cdn/a.mp3", "")
	if err := f.orch.HandleCallback(context.Background(), env); err != nil {
		t.Fatalf("pipeline failures must not surface to the webhook response, got %v", err)
	}

	msg, ok := f.orch.TakeError(taskID)
	if !ok {
		t.Fatal("task should be in the error state")
	}
	if !strings.Contains(msg, "image provider") {
		t.Errorf("error message = %q", msg)
	}

	// The already-downloaded audio must be cleaned up.
	if _, err := os.Stat(f.audio.lastDest); !os.IsNotExist(err) {
		t.Error("partial audio artifact should have been released")
	}
}

func TestPublishDeliveryRunsFullPipeline(t *testing.T) {
	f := newFixture(t, simpleRecord())
	req := startRequest()
	req.Delivery = models.DeliveryPublish
	taskID, err := f.orch.Start(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	env := finalCallback("job-42", "https://cdn/a.mp3", "")
	if err := f.orch.HandleCallback(context.Background(), env); err != nil {
		t.Fatalf("HandleCallback failed: %v", err)
	}

	if f.muxer.calls != 1 || f.host.calls != 1 {
		t.Fatalf("mux calls = %d, upload calls = %d, want 1 and 1", f.muxer.calls, f.host.calls)
	}
	if f.sheets.publishedURL != f.host.url || f.sheets.publishedRow != 2 {
		t.Errorf("write-back = %q row %d", f.sheets.publishedURL, f.sheets.publishedRow)
	}

	task, ok := f.orch.TakeReady(taskID)
	if !ok {
		t.Fatal("task should be ready")
	}
	if task.Metadata.VideoURL != f.host.url {
		t.Errorf("video url = %q", task.Metadata.VideoURL)
	}
	if task.Artifacts.AudioPath != "" {
		t.Error("publish delivery must not hold artifacts")
	}
	// All temp files were released at the end of the pipeline.
	if _, err := os.Stat(f.audio.lastDest); !os.IsNotExist(err) {
		t.Error("audio temp file should have been released")
	}
	if _, err := os.Stat(f.images.lastDest); !os.IsNotExist(err) {
		t.Error("image temp file should have been released")
	}
}

func TestMuxFailureMarksTaskError(t *testing.T) {
	f := newFixture(t, simpleRecord())
	req := startRequest()
	req.Delivery = models.DeliveryPublish
	taskID, err := f.orch.Start(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	f.muxer.err = apperrs.MediaTool("video assembly failed: exit status 1", nil)

	env := finalCallback("job-42", "https://cdn/a.mp3", "")
	if err := f.orch.HandleCallback(context.Background(), env); err != nil {
		t.Fatal(err)
	}

	msg, ok := f.orch.TakeError(taskID)
	if !ok {
		t.Fatal("task should be in the error state")
	}
	if !strings.Contains(msg, "video assembly") {
		t.Errorf("error message = %q, should identify the media tool failure", msg)
	}
	if f.host.calls != 0 {
		t.Fatal("failed mux must abort the remaining stages")
	}
}

func TestReadyIsConsumedExactlyOnce(t *testing.T) {
	f := newFixture(t, simpleRecord())
	taskID, err := f.orch.Start(context.Background(), startRequest())
	if err != nil {
		t.Fatal(err)
	}
	env := finalCallback("job-42", "https://cdn/a.mp3", "")
	if err := f.orch.HandleCallback(context.Background(), env); err != nil {
		t.Fatal(err)
	}

	task, ok := f.orch.TakeReady(taskID)
	if !ok {
		t.Fatal("first take should win")
	}
	f.orch.ReleaseArtifacts(task)

	if _, ok := f.orch.TakeReady(taskID); ok {
		t.Fatal("second take must lose")
	}
	if _, ok := f.orch.Snapshot(taskID); ok {
		t.Fatal("consumed task must be gone entirely")
	}
}

func TestPublishUploadsAndWritesBack(t *testing.T) {
	f := newFixture(t, simpleRecord())

	dir := t.TempDir()
	videoPath := dir + "/final.mp4"
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	url, err := f.orch.Publish(context.Background(), PublishRequest{
		VideoPath:   videoPath,
		AccessToken: "tok",
		SheetID:     "sheet-1",
		PromptID:    "id-1",
		Meta:        models.ResultMetadata{Title: "Rainy Lofi Mix"},
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if url != f.host.url {
		t.Errorf("url = %q", url)
	}
	if f.sheets.publishedURL != url {
		t.Error("write-back did not record the video URL")
	}
}

func TestPublishUploadFailure(t *testing.T) {
	f := newFixture(t, simpleRecord())
	f.host.err = apperrs.Auth("YouTube token expired or invalid", errors.New("401"))

	_, err := f.orch.Publish(context.Background(), PublishRequest{VideoPath: "/nonexistent"})
	if err == nil || apperrs.KindOf(err) != apperrs.KindAuth {
		t.Fatalf("expected the auth error to surface, got %v", err)
	}
	if f.sheets.publishedURL != "" {
		t.Fatal("failed upload must not write back")
	}
}
