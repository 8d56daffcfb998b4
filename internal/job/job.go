// Package job provides the Job entity tracking one file through a trim batch.
// It includes the state machine for job transitions and the repository
// interface used to collect jobs while a batch runs.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/trimsilence/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusPending indicates the job is waiting for a free worker.
	StatusPending Status = "PENDING"
	// StatusRunning indicates the file is being processed.
	StatusRunning Status = "RUNNING"
	// StatusSucceeded indicates the file was processed, whether or not it was rewritten.
	StatusSucceeded Status = "SUCCEEDED"
	// StatusFailed indicates the file could not be processed.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("job: invalid state transition")

// validTransitions defines which state transitions are allowed.
// PENDING -> FAILED covers jobs never started because the run was cancelled.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusRunning, StatusFailed},
	StatusRunning:   {StatusSucceeded, StatusFailed},
	StatusSucceeded: {},
	StatusFailed:    {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Job tracks the processing of a single audio file.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string `json:"id"`
	// RunID groups the jobs of one batch run.
	RunID string `json:"run_id,omitempty"`
	// Path is the audio file processed by this job.
	Path string `json:"path"`
	// Status is the current job state.
	Status Status `json:"status"`
	// Outcome names what happened to the file once the job succeeded
	// (trimmed, kept_silent, kept_too_short or unchanged).
	Outcome string `json:"outcome,omitempty"`
	// Error contains the error message if the job failed.
	Error string `json:"error,omitempty"`
	// OriginalSeconds is the decoded duration before trimming.
	OriginalSeconds float64 `json:"original_seconds"`
	// TrimmedSeconds is the duration written back (or that would be, on a dry run).
	TrimmedSeconds float64 `json:"trimmed_seconds"`
	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time `json:"updated_at"`
	// StartedAt is when processing started.
	StartedAt time.Time `json:"started_at,omitzero"`
	// CompletedAt is when processing finished.
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// New creates a new Job for path with a generated ID and PENDING status.
func New(path string) *Job {
	return NewWithID(id.Generate(), path)
}

// NewWithID creates a new Job with the specified ID and PENDING status.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID, path string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Path:      path,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusSucceeded, StatusFailed:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from PENDING to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Succeed transitions the job to SUCCEEDED and records the outcome and durations.
func (j *Job) Succeed(outcome string, originalSeconds, trimmedSeconds float64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.transitionLocked(StatusSucceeded); err != nil {
		return err
	}
	j.Outcome = outcome
	j.OriginalSeconds = originalSeconds
	j.TrimmedSeconds = trimmedSeconds
	return nil
}

// Fail transitions the job to FAILED state with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.transitionLocked(StatusFailed); err != nil {
		return err
	}
	j.Error = errMsg
	return nil
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Elapsed returns the processing time, or zero if the job never ran to completion.
func (j *Job) Elapsed() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.StartedAt.IsZero() || j.CompletedAt.IsZero() {
		return 0
	}
	return j.CompletedAt.Sub(j.StartedAt)
}

// Clone creates a copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:              j.ID,
		RunID:           j.RunID,
		Path:            j.Path,
		Status:          j.Status,
		Outcome:         j.Outcome,
		Error:           j.Error,
		OriginalSeconds: j.OriginalSeconds,
		TrimmedSeconds:  j.TrimmedSeconds,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
	}
}
