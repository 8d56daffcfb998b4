package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("job: not found")

// Repository defines the interface for job persistence during a batch.
type Repository interface {
	// Save persists a job. If the job already exists, it is replaced.
	Save(ctx context.Context, job *Job) error

	// FindByID retrieves a job by its unique identifier.
	// Returns ErrJobNotFound if the job does not exist.
	FindByID(ctx context.Context, id string) (*Job, error)

	// ListByRun returns the jobs of one run ordered by path.
	ListByRun(ctx context.Context, runID string) ([]*Job, error)
}
