package models

import "time"

// TaskStatus is the tagged state of an in-flight task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusReady   TaskStatus = "ready"
	TaskStatusError   TaskStatus = "error"
)

// DeliveryStrategy selects what happens after the provider's final callback.
type DeliveryStrategy string

const (
	// DeliveryBundle marks the task ready and leaves audio/image on disk for
	// the client to pick up as a zip bundle and assemble locally.
	DeliveryBundle DeliveryStrategy = "bundle"
	// DeliveryPublish runs the full tail of the pipeline server-side:
	// mux, YouTube upload and sheet write-back.
	DeliveryPublish DeliveryStrategy = "publish"
)

// TaskContext is the subset of the prompt row plus per-request credentials
// needed to finish the pipeline. Captured at task creation, never re-read.
type TaskContext struct {
	Record      *PromptRecord
	AccessToken string
	SheetID     string
	SunoKey     string
	ImageKey    string
	Delivery    DeliveryStrategy
}

// TaskArtifacts holds the on-disk results of an accepted callback.
type TaskArtifacts struct {
	AudioPath string
	ImagePath string
}

// ResultMetadata travels with a ready task into the bundle or the upload.
type ResultMetadata struct {
	PromptID    string   `json:"prompt_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Visibility  string   `json:"visibility"`
	SongTitle   string   `json:"song_title,omitempty"`
	VideoURL    string   `json:"video_url,omitempty"`
}

// Task is one in-flight request to turn a prompt row into a published video.
// State lives only in process memory; a restart loses it by design.
type Task struct {
	ID        string
	JobID     string // provider-issued generation job id
	Status    TaskStatus
	Context   TaskContext
	Artifacts TaskArtifacts
	Metadata  ResultMetadata
	ErrorMsg  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
