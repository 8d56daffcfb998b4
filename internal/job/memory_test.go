package job

import (
	"context"
	"testing"
)

func TestMemoryRepository_Save(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	job := New("a.wav")

	err := repo.Save(ctx, job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify it was saved
	saved, err := repo.FindByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID != job.ID {
		t.Errorf("expected ID %s, got %s", job.ID, saved.ID)
	}
	if saved.Path != "a.wav" {
		t.Errorf("expected path a.wav, got %s", saved.Path)
	}
}

func TestMemoryRepository_Save_Update(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	job := New("a.wav")

	// Save initial
	_ = repo.Save(ctx, job)

	// Update job
	_ = job.Start()
	_ = job.Succeed("unchanged", 4, 4)
	_ = repo.Save(ctx, job)

	// Verify update
	saved, _ := repo.FindByID(ctx, job.ID)
	if saved.Status != StatusSucceeded {
		t.Errorf("expected status %s, got %s", StatusSucceeded, saved.Status)
	}
	if saved.Outcome != "unchanged" {
		t.Errorf("expected outcome unchanged, got %s", saved.Outcome)
	}
}

func TestMemoryRepository_FindByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "nonexistent")
	if err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryRepository_FindByID_ReturnsClone(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	job := New("a.wav")
	_ = repo.Save(ctx, job)

	// Get job
	found, _ := repo.FindByID(ctx, job.ID)

	// Modify returned job
	found.Path = "other.wav"
	_ = found.Start()

	// Original in repo should be unchanged
	original, _ := repo.FindByID(ctx, job.ID)
	if original.Path != "a.wav" {
		t.Error("modifying returned job should not affect repository")
	}
	if original.Status != StatusPending {
		t.Error("modifying returned job status should not affect repository")
	}
}

func newRunJob(runID, path string) *Job {
	j := New(path)
	j.RunID = runID
	return j
}

func TestMemoryRepository_ListByRun(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	// Unknown run
	jobs, err := repo.ListByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("expected 0 jobs, got %d", len(jobs))
	}

	// Add jobs out of order, plus one from another run
	for _, p := range []string{"c.wav", "a.wav", "b.mp3"} {
		_ = repo.Save(ctx, newRunJob("run-1", p))
	}
	_ = repo.Save(ctx, newRunJob("run-2", "0.wav"))

	jobs, err = repo.ListByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	want := []string{"a.wav", "b.mp3", "c.wav"}
	for i, j := range jobs {
		if j.Path != want[i] {
			t.Errorf("jobs[%d].Path = %s, want %s", i, j.Path, want[i])
		}
		if j.RunID != "run-1" {
			t.Errorf("jobs[%d].RunID = %s, want run-1", i, j.RunID)
		}
	}

	other, _ := repo.ListByRun(ctx, "run-2")
	if len(other) != 1 || other[0].Path != "0.wav" {
		t.Errorf("expected only 0.wav in run-2, got %v", other)
	}
}

func TestMemoryRepository_ListByRun_UpdateKeepsOneEntry(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	job := newRunJob("run-1", "a.wav")

	_ = repo.Save(ctx, job)
	_ = job.Start()
	_ = repo.Save(ctx, job)

	jobs, _ := repo.ListByRun(ctx, "run-1")
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Status != StatusRunning {
		t.Errorf("expected status %s, got %s", StatusRunning, jobs[0].Status)
	}
}

func TestMemoryRepository_ListByRun_MovedJob(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	job := newRunJob("run-1", "a.wav")
	_ = repo.Save(ctx, job)

	job.RunID = "run-2"
	_ = repo.Save(ctx, job)

	if jobs, _ := repo.ListByRun(ctx, "run-1"); len(jobs) != 0 {
		t.Errorf("expected run-1 to be empty, got %d jobs", len(jobs))
	}
	if jobs, _ := repo.ListByRun(ctx, "run-2"); len(jobs) != 1 {
		t.Errorf("expected 1 job in run-2, got %d", len(jobs))
	}
}

func TestMemoryRepository_ListByRun_ReturnsClones(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	job := newRunJob("run-1", "a.wav")
	_ = repo.Save(ctx, job)

	// Get list
	jobs, _ := repo.ListByRun(ctx, "run-1")

	// Modify returned job
	jobs[0].Error = "mutated"

	// Original in repo should be unchanged
	original, _ := repo.FindByID(ctx, job.ID)
	if original.Error != "" {
		t.Error("modifying listed job should not affect repository")
	}
}

func TestMemoryRepository_ConcurrentAccess(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	done := make(chan bool)

	// Concurrent writes
	go func() {
		for i := 0; i < 100; i++ {
			_ = repo.Save(ctx, newRunJob("run-1", "a.wav"))
		}
		done <- true
	}()

	// Concurrent reads
	go func() {
		for i := 0; i < 100; i++ {
			_, _ = repo.ListByRun(ctx, "run-1")
		}
		done <- true
	}()

	<-done
	<-done
	// If no race conditions, test passes
}
