// Package bootstrap provides dependency initialization for trimsilence.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/trimsilence/internal/audio"
	"github.com/maauso/trimsilence/internal/backend"
	"github.com/maauso/trimsilence/internal/batch"
	"github.com/maauso/trimsilence/internal/config"
	"github.com/maauso/trimsilence/internal/job"
	"github.com/maauso/trimsilence/internal/silence"
	"github.com/maauso/trimsilence/internal/storage"
	"github.com/maauso/trimsilence/internal/trim"
)

// Dependencies holds all initialized dependencies for a batch run.
type Dependencies struct {
	Config    *config.Config
	Backend   backend.Selection
	FFmpeg    *audio.FFmpegCodec
	Codec     audio.Codec
	Processor *trim.Processor
	Scheduler *batch.Scheduler
	// Storage is nil when reports are not persisted.
	Storage storage.Storage

	logger *slog.Logger
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	pref, err := backend.ParsePreference(cfg.Backend)
	if err != nil {
		return nil, err
	}
	selection := backend.Select(pref)
	logger.Info("compute backend selected",
		slog.String("kind", string(selection.Kind)),
		slog.String("device", selection.Device),
	)

	// WAV is decoded natively; everything else, including non-PCM WAV, goes through ffmpeg
	ffmpeg := audio.NewFFmpegCodec(cfg.FFmpegPath, cfg.FFprobePath)
	codec := audio.NewRouter(ffmpeg).Register(".wav", audio.NewWAVCodec(ffmpeg))

	processor := trim.NewProcessor(
		codec,
		silence.NewDetector(selection.Backend),
		trim.Options{
			ThresholdDB:    cfg.SilenceThresholdDB,
			WindowSeconds:  cfg.WindowSeconds,
			MinKeptSeconds: cfg.MinKeptDurationSeconds,
			DryRun:         cfg.DryRun,
		},
		logger,
	)

	scheduler := batch.NewScheduler(processor, job.NewMemoryRepository(), cfg.JobTimeout, logger)

	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		Config:    cfg,
		Backend:   selection,
		FFmpeg:    ffmpeg,
		Codec:     codec,
		Processor: processor,
		Scheduler: scheduler,
		Storage:   store,
		logger:    logger,
	}, nil
}

// Workers returns the worker count for fileCount files: MAX_WORKERS when set,
// otherwise the backend's suggestion.
func (d *Dependencies) Workers(fileCount int) int {
	if d.Config.MaxWorkers > 0 {
		return d.Config.MaxWorkers
	}
	return d.Backend.SuggestedWorkers(fileCount)
}

// Run processes paths and returns the report annotated with the backend in use.
func (d *Dependencies) Run(ctx context.Context, paths []string) *batch.Report {
	report := d.Scheduler.Run(ctx, paths, d.Workers(len(paths)))
	report.Backend = string(d.Backend.Kind)
	report.Device = d.Backend.Device
	report.DryRun = d.Config.DryRun
	return report
}

// PublishReport persists report when storage is configured. It returns a zero
// Location when reports are disabled. A cancelled ctx does not stop the save,
// so interrupted runs still leave a report behind.
func (d *Dependencies) PublishReport(ctx context.Context, report *batch.Report) (storage.Location, error) {
	if d.Storage == nil {
		return storage.Location{}, nil
	}
	ctx = context.WithoutCancel(ctx)

	data, err := report.JSON()
	if err != nil {
		return storage.Location{}, fmt.Errorf("encode report: %w", err)
	}

	loc, err := storage.Publish(ctx, d.Storage, report.RunID+".json", data)
	if err != nil {
		return loc, err
	}

	d.logger.Info("report saved",
		slog.String("path", loc.Path),
		slog.String("url", loc.URL),
	)
	return loc, nil
}

// initStorage creates the report storage based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if !cfg.ReportsEnabled() {
		return nil, nil
	}

	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, cfg.ReportDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 report storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("prefix", cfg.S3Prefix),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.ReportDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local report storage configured",
		slog.String("report_dir", localStore.Dir()),
	)
	return localStore, nil
}
