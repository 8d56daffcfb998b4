// Package trim applies silence detection to a single audio file and rewrites it
// in place when leading or trailing silence was found.
package trim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/maauso/trimsilence/internal/audio"
	"github.com/maauso/trimsilence/internal/silence"
)

// Static errors for per-file processing.
var (
	// ErrDecode is returned when a file cannot be read as audio.
	ErrDecode = errors.New("trim: decode failed")
	// ErrWrite is returned when the trimmed audio cannot be written back.
	ErrWrite = errors.New("trim: write failed")
	// ErrDetectionInput is returned when the decoded buffer cannot be analyzed.
	ErrDetectionInput = silence.ErrDetectionInput
)

// Outcome describes what happened to a file that was processed without error.
type Outcome string

const (
	// OutcomeTrimmed means silence was removed and the file was rewritten.
	OutcomeTrimmed Outcome = "trimmed"
	// OutcomeKeptSilent means the file is silent throughout and was left untouched.
	OutcomeKeptSilent Outcome = "kept_silent"
	// OutcomeKeptTooShort means the voiced region was shorter than the minimum
	// kept duration and the file was left untouched.
	OutcomeKeptTooShort Outcome = "kept_too_short"
	// OutcomeUnchanged means there was no silence to remove.
	OutcomeUnchanged Outcome = "unchanged"
)

// DefaultMinKeptSeconds is the shortest voiced region worth writing back.
const DefaultMinKeptSeconds = 0.1

// Options configures a Processor.
type Options struct {
	// ThresholdDB is the silence threshold in dBFS.
	ThresholdDB float64
	// WindowSeconds is the analysis window length.
	WindowSeconds float64
	// MinKeptSeconds is the minimum duration a trimmed file may have.
	MinKeptSeconds float64
	// DryRun analyzes files without rewriting them.
	DryRun bool
}

// DefaultOptions returns the standard trimming parameters.
func DefaultOptions() Options {
	return Options{
		ThresholdDB:    silence.DefaultThresholdDB,
		WindowSeconds:  silence.DefaultWindowSeconds,
		MinKeptSeconds: DefaultMinKeptSeconds,
	}
}

// Result is the per-file record returned by Process.
type Result struct {
	Path    string
	Outcome Outcome
	// OriginalSeconds is the decoded duration.
	OriginalSeconds float64
	// TrimmedSeconds is the duration of the kept region. It equals
	// OriginalSeconds for every outcome but OutcomeTrimmed.
	TrimmedSeconds float64
	// Range is the kept sample range.
	Range  silence.Range
	DryRun bool
	// Err is set when the file could not be processed; Outcome is empty then.
	Err error
}

// RemovedPercent returns the share of the original duration that was cut.
func (r Result) RemovedPercent() float64 {
	if r.OriginalSeconds <= 0 {
		return 0
	}
	return (r.OriginalSeconds - r.TrimmedSeconds) / r.OriginalSeconds * 100
}

// Processor trims one file at a time. It holds no per-file state and is safe
// for concurrent use when its codec and backend are.
type Processor struct {
	codec    audio.Codec
	detector *silence.Detector
	opts     Options
	logger   *slog.Logger
}

// NewProcessor creates a new Processor.
func NewProcessor(codec audio.Codec, detector *silence.Detector, opts Options, logger *slog.Logger) *Processor {
	if detector == nil {
		detector = silence.NewDetector(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		codec:    codec,
		detector: detector,
		opts:     opts,
		logger:   logger,
	}
}

// Process decodes path, detects its non-silent region and, unless the file
// should be kept as is, overwrites it with the trimmed audio. Errors are
// reported in Result.Err rather than returned.
func (p *Processor) Process(ctx context.Context, path string) Result {
	res := Result{Path: path, DryRun: p.opts.DryRun}
	log := p.logger.With(slog.String("path", path))

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	buf, err := p.codec.Decode(ctx, path)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrDecode, err)
		log.Error("failed to decode audio", slog.String("error", err.Error()))
		return res
	}

	res.OriginalSeconds = buf.Duration()
	res.TrimmedSeconds = res.OriginalSeconds

	analysis, err := p.detector.Analyze(buf.Samples, buf.SampleRate, p.opts.ThresholdDB, p.opts.WindowSeconds)
	if err != nil {
		res.Err = err
		log.Error("failed to analyze audio", slog.String("error", err.Error()))
		return res
	}
	res.Range = analysis.Range

	res.Outcome = p.classify(analysis, buf)
	switch res.Outcome {
	case OutcomeKeptSilent:
		log.Warn("audio is silent throughout, keeping original",
			slog.Float64("duration_seconds", res.OriginalSeconds),
		)
		return res
	case OutcomeKeptTooShort:
		log.Warn("audio too short after trimming, keeping original",
			slog.Float64("duration_seconds", res.OriginalSeconds),
			slog.Float64("kept_seconds", float64(analysis.Range.Len())/float64(buf.SampleRate)),
		)
		return res
	case OutcomeUnchanged:
		log.Info("no silence to remove",
			slog.Float64("duration_seconds", res.OriginalSeconds),
		)
		return res
	}

	trimmed := buf.Slice(analysis.Range.Start, analysis.Range.End)
	res.TrimmedSeconds = trimmed.Duration()

	log.Info("trimming silence",
		slog.String("file", filepath.Base(path)),
		slog.Float64("original_seconds", res.OriginalSeconds),
		slog.Float64("trimmed_seconds", res.TrimmedSeconds),
		slog.String("removed", fmt.Sprintf("%.1f%%", res.RemovedPercent())),
		slog.Bool("dry_run", p.opts.DryRun),
	)

	if p.opts.DryRun {
		return res
	}

	if err := p.write(ctx, path, trimmed); err != nil {
		res.Outcome = ""
		res.Err = err
		log.Error("failed to write trimmed audio", slog.String("error", err.Error()))
		return res
	}

	return res
}

// classify picks the outcome for an analyzed buffer.
func (p *Processor) classify(a silence.Analysis, buf *audio.Buffer) Outcome {
	if !a.Analyzed {
		return OutcomeUnchanged
	}
	if !a.Voiced {
		return OutcomeKeptSilent
	}
	if float64(a.Range.Len())/float64(buf.SampleRate) < p.opts.MinKeptSeconds {
		return OutcomeKeptTooShort
	}
	if a.Range.Start == 0 && a.Range.End == len(buf.Samples) {
		return OutcomeUnchanged
	}
	return OutcomeTrimmed
}

// write atomically replaces path with the encoded buffer.
func (p *Processor) write(ctx context.Context, path string, buf *audio.Buffer) error {
	err := audio.ReplaceFile(path, func(tmpPath string) error {
		return p.codec.Encode(ctx, tmpPath, buf)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
