// Package batch runs the trim processor over many files with bounded
// concurrency and aggregates the per-file results into a report.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/trimsilence/internal/job"
	"github.com/maauso/trimsilence/internal/job/id"
	"github.com/maauso/trimsilence/internal/trim"
)

// ErrJobPanic is recorded for a job whose processing panicked.
var ErrJobPanic = errors.New("batch: job panicked")

// FileProcessor processes a single file. *trim.Processor implements it.
type FileProcessor interface {
	Process(ctx context.Context, path string) trim.Result
}

// Verify interface implementation at compile time.
var _ FileProcessor = (*trim.Processor)(nil)

// Scheduler runs one job per file under a worker limit.
type Scheduler struct {
	processor  FileProcessor
	repo       job.Repository
	logger     *slog.Logger
	jobTimeout time.Duration
}

// NewScheduler creates a new Scheduler. A zero jobTimeout disables the
// per-job deadline.
func NewScheduler(processor FileProcessor, repo job.Repository, jobTimeout time.Duration, logger *slog.Logger) *Scheduler {
	if repo == nil {
		repo = job.NewMemoryRepository()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		processor:  processor,
		repo:       repo,
		logger:     logger,
		jobTimeout: jobTimeout,
	}
}

// Run processes paths with at most maxWorkers files in flight and returns the
// aggregated report. Per-file failures never abort the run. When ctx is
// cancelled no new files are started and the remaining ones are recorded as
// failed with the context error.
func (s *Scheduler) Run(ctx context.Context, paths []string, maxWorkers int) *Report {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	report := newReport(id.GenerateRun(), maxWorkers)
	log := s.logger.With(slog.String("run_id", report.RunID))
	log.Info("starting batch",
		slog.Int("files", len(paths)),
		slog.Int("workers", maxWorkers),
	)

	jobs := make([]*job.Job, len(paths))
	for i, p := range paths {
		jobs[i] = job.New(p)
		jobs[i].RunID = report.RunID
		s.save(ctx, jobs[i])
	}

	start := time.Now()

	// The collector owns report until it returns; results are counted as
	// each job finishes, not when the batch does.
	done := make(chan *job.Job, len(jobs))
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		s.collect(ctx, log, report, done, len(jobs))
	}()

	var g errgroup.Group
	g.SetLimit(maxWorkers)

	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			s.skip(ctx, j, err)
			done <- j
			continue
		}
		g.Go(func() error {
			s.runJob(ctx, j)
			done <- j
			return nil
		})
	}

	// Jobs never return errors; failures are recorded on the job itself.
	_ = g.Wait()
	close(done)
	<-collected

	report.finish(time.Since(start), s.runJobs(ctx, report.RunID, jobs))

	log.Info("batch finished",
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Float64("elapsed_seconds", report.ElapsedSeconds),
		slog.Float64("files_per_second", report.Throughput),
	)

	return report
}

// collect adds each finished job to report as it arrives on done.
func (s *Scheduler) collect(ctx context.Context, log *slog.Logger, report *Report, done <-chan *job.Job, total int) {
	completed := 0
	for j := range done {
		completed++
		snap := s.snapshot(ctx, j)
		report.add(snap)
		log.Info("job finished",
			slog.String("progress", fmt.Sprintf("%d/%d", completed, total)),
			slog.String("file", filepath.Base(snap.Path)),
			slog.String("status", string(snap.Status)),
			slog.Duration("elapsed", snap.Elapsed()),
		)
	}
}

// snapshot returns the stored copy of j, or a live clone when the
// repository is missing it or missed its final save.
func (s *Scheduler) snapshot(ctx context.Context, j *job.Job) *job.Job {
	stored, err := s.repo.FindByID(context.WithoutCancel(ctx), j.ID)
	if err != nil || stored.Status != j.GetStatus() {
		return j.Clone()
	}
	return stored
}

// runJob drives one job through its lifecycle.
func (s *Scheduler) runJob(ctx context.Context, j *job.Job) {
	log := s.logger.With(slog.String("job_id", j.ID), slog.String("path", j.Path))

	if err := j.Start(); err != nil {
		log.Error("failed to start job", slog.String("error", err.Error()))
		return
	}
	s.save(ctx, j)

	jobCtx := ctx
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	res := s.process(jobCtx, j.Path)

	if res.Err != nil {
		_ = j.Fail(res.Err.Error())
		log.Warn("job failed", slog.String("error", res.Err.Error()))
	} else {
		_ = j.Succeed(string(res.Outcome), res.OriginalSeconds, res.TrimmedSeconds)
	}
	s.save(ctx, j)
}

// process calls the processor and turns a panic into a failed result.
func (s *Scheduler) process(ctx context.Context, path string) (res trim.Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked",
				slog.String("path", path),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			res = trim.Result{Path: path, Err: fmt.Errorf("%w: %v", ErrJobPanic, r)}
		}
	}()
	return s.processor.Process(ctx, path)
}

// skip records a job that was never started.
func (s *Scheduler) skip(ctx context.Context, j *job.Job, cause error) {
	_ = j.Fail(cause.Error())
	s.save(ctx, j)
}

// save persists a snapshot of j. Repository errors are logged, not fatal.
func (s *Scheduler) save(ctx context.Context, j *job.Job) {
	// The run may already be cancelled; bookkeeping still has to land.
	if err := s.repo.Save(context.WithoutCancel(ctx), j); err != nil {
		s.logger.Warn("failed to save job",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
}

// runJobs returns the stored snapshots of this run's jobs ordered by path.
func (s *Scheduler) runJobs(ctx context.Context, runID string, jobs []*job.Job) []*job.Job {
	stored, err := s.repo.ListByRun(context.WithoutCancel(ctx), runID)
	if err != nil {
		s.logger.Warn("failed to list jobs", slog.String("error", err.Error()))
	}
	if err == nil && len(stored) == len(jobs) {
		return stored
	}

	// Fall back to live snapshots if the repository lost track.
	out := make([]*job.Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Clone())
	}
	return out
}
