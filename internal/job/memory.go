package job

import (
	"context"
	"sort"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps job snapshots in memory, indexed by ID and by run.
// Stored jobs are clones, so callers never share state with the repository.
type MemoryRepository struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	byRun map[string]map[string]struct{}
}

// NewMemoryRepository creates a new in-memory job repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		jobs:  make(map[string]*Job),
		byRun: make(map[string]map[string]struct{}),
	}
}

// Save stores a snapshot of job, replacing any earlier one with the same ID.
func (r *MemoryRepository) Save(_ context.Context, job *Job) error {
	snap := job.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.jobs[snap.ID]; ok && prev.RunID != snap.RunID {
		delete(r.byRun[prev.RunID], snap.ID)
	}
	r.jobs[snap.ID] = snap

	ids, ok := r.byRun[snap.RunID]
	if !ok {
		ids = make(map[string]struct{})
		r.byRun[snap.RunID] = ids
	}
	ids[snap.ID] = struct{}{}
	return nil
}

// FindByID returns a snapshot of the job with the given ID.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

// ListByRun returns snapshots of the jobs saved for runID, ordered by path
// and then ID. An unknown run yields an empty slice.
func (r *MemoryRepository) ListByRun(_ context.Context, runID string) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byRun[runID]
	result := make([]*Job, 0, len(ids))
	for jobID := range ids {
		result = append(result, r.jobs[jobID].Clone())
	}
	sort.Slice(result, func(i, k int) bool {
		if result[i].Path != result[k].Path {
			return result[i].Path < result[k].Path
		}
		return result[i].ID < result[k].ID
	})
	return result, nil
}
