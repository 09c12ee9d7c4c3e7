package taskstore

import (
	"errors"
	"sync"
	"time"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/models"
)

var (
	// ErrNotFound means no live task exists under the given id.
	ErrNotFound = errors.New("task not found")
	// ErrConflict means a transition was attempted from the wrong state,
	// e.g. completing a task that already errored.
	ErrConflict = errors.New("task state conflict")
)

// Store is the in-memory registry of in-flight tasks. Entries live only for
// the process lifetime; a crash loses them, which is accepted behavior.
//
// All methods are safe for concurrent use. Every state transition is a
// single locked read-check-write so a provider callback and a polling client
// working the same id can never interleave destructively.
type Store struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
	byJob map[string]string // provider job id -> task id
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tasks: make(map[string]*models.Task),
		byJob: make(map[string]string),
	}
}

// Put registers a new task. At most one live task may exist per id. Tasks
// enter without a job id; BindJob indexes them once the provider answers.
func (s *Store) Put(task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; ok {
		return ErrConflict
	}
	s.tasks[task.ID] = task
	return nil
}

// BindJob maps a provider-issued job id to an existing task so webhook
// callbacks can be correlated back to it.
func (s *Store) BindJob(taskID, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	task.JobID = jobID
	task.UpdatedAt = time.Now()
	s.byJob[jobID] = taskID
	return nil
}

// ResolveJobID returns the task id a provider job id is bound to.
func (s *Store) ResolveJobID(jobID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byJob[jobID]
	return id, ok
}

// Get returns a snapshot of a task's visible state.
func (s *Store) Get(id string) (models.TaskStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return "", false
	}
	return task.Status, true
}

// Context returns the immutable context captured at task creation.
func (s *Store) Context(id string) (models.TaskContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return models.TaskContext{}, false
	}
	return task.Context, true
}

// Complete transitions a pending task to ready, attaching artifacts and
// result metadata.
func (s *Store) Complete(id string, artifacts models.TaskArtifacts, meta models.ResultMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if task.Status != models.TaskStatusPending {
		return ErrConflict
	}
	task.Status = models.TaskStatusReady
	task.Artifacts = artifacts
	task.Metadata = meta
	task.UpdatedAt = time.Now()
	return nil
}

// Fail transitions a task to the error state. The message is surfaced once
// to a polling client and the task removed; artifacts must already have
// been released by the caller.
func (s *Store) Fail(id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	task.Status = models.TaskStatusError
	task.ErrorMsg = message
	task.Artifacts = models.TaskArtifacts{}
	task.UpdatedAt = time.Now()
	return nil
}

// TakeReady atomically removes and returns the task if and only if it is
// ready. Exactly one of any number of concurrent callers wins; the rest see
// ok == false. This is what makes result delivery one-shot.
func (s *Store) TakeReady(id string) (*models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.Status != models.TaskStatusReady {
		return nil, false
	}
	s.delete(task)
	return task, true
}

// TakeError atomically removes and returns the task if it is in the error
// state. The error is surfaced exactly once.
func (s *Store) TakeError(id string) (*models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.Status != models.TaskStatusError {
		return nil, false
	}
	s.delete(task)
	return task, true
}

// Remove deletes a task unconditionally, returning it if it existed.
func (s *Store) Remove(id string) (*models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	s.delete(task)
	return task, true
}

// Len reports the number of live tasks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Store) delete(task *models.Task) {
	delete(s.tasks, task.ID)
	if task.JobID != "" {
		delete(s.byJob, task.JobID)
	}
}
