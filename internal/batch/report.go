package batch

import (
	"encoding/json"
	"time"

	"github.com/maauso/trimsilence/internal/job"
	"github.com/maauso/trimsilence/internal/trim"
)

// Report summarizes one batch run. It is not modified after Run returns.
type Report struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Workers   int       `json:"workers"`
	// Backend and Device describe the compute backend; filled in by the caller.
	Backend string `json:"backend,omitempty"`
	Device  string `json:"device,omitempty"`
	DryRun  bool   `json:"dry_run"`

	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	Trimmed      int `json:"trimmed"`
	KeptSilent   int `json:"kept_silent"`
	KeptTooShort int `json:"kept_too_short"`
	Unchanged    int `json:"unchanged"`

	Elapsed        time.Duration `json:"-"`
	ElapsedSeconds float64       `json:"elapsed_seconds"`
	// Throughput is completed jobs per second of wall time.
	Throughput float64 `json:"files_per_second"`

	// SecondsRemoved is the total audio duration cut across trimmed files.
	SecondsRemoved float64 `json:"seconds_removed"`

	Jobs []*job.Job `json:"jobs"`
}

func newReport(runID string, workers int) *Report {
	return &Report{
		RunID:     runID,
		StartedAt: time.Now(),
		Workers:   workers,
	}
}

// add counts one finished job. Counting is order independent.
func (r *Report) add(j *job.Job) {
	snap := j.Clone()
	r.Total++

	if snap.Status != job.StatusSucceeded {
		r.Failed++
		return
	}

	r.Succeeded++
	switch trim.Outcome(snap.Outcome) {
	case trim.OutcomeTrimmed:
		r.Trimmed++
		r.SecondsRemoved += snap.OriginalSeconds - snap.TrimmedSeconds
	case trim.OutcomeKeptSilent:
		r.KeptSilent++
	case trim.OutcomeKeptTooShort:
		r.KeptTooShort++
	case trim.OutcomeUnchanged:
		r.Unchanged++
	}
}

func (r *Report) finish(elapsed time.Duration, jobs []*job.Job) {
	r.Elapsed = elapsed
	r.ElapsedSeconds = elapsed.Seconds()
	if r.ElapsedSeconds > 0 {
		r.Throughput = float64(r.Total) / r.ElapsedSeconds
	}
	r.Jobs = jobs
}

// HasFailures reports whether any file failed.
func (r *Report) HasFailures() bool {
	return r.Failed > 0
}

// FailedJobs returns the jobs that did not succeed, ordered by path.
func (r *Report) FailedJobs() []*job.Job {
	var out []*job.Job
	for _, j := range r.Jobs {
		if j.Status == job.StatusFailed {
			out = append(out, j)
		}
	}
	return out
}

// JSON encodes the report for persistence.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
