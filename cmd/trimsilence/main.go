// Package main provides the entry point for the trimsilence batch trimmer.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/maauso/trimsilence/internal/audio"
	"github.com/maauso/trimsilence/internal/bootstrap"
	"github.com/maauso/trimsilence/internal/cli"
	"github.com/maauso/trimsilence/internal/config"
)

var version = "dev"

// errFailures signals that the run finished with failed files.
var errFailures = errors.New("some files could not be processed")

// CLI defines the command-line interface. Defaults come from the environment.
type CLI struct {
	Dir       string  `arg:"" optional:"" type:"path" default:"${audio_dir}" help:"Directory of audio files to trim in place."`
	Threshold float64 `short:"t" default:"${threshold}" help:"Silence threshold in dBFS."`
	Window    float64 `short:"w" default:"${window}" help:"Analysis window length in seconds."`
	MinKept   float64 `default:"${min_kept}" help:"Minimum voiced duration in seconds worth trimming to."`
	Workers   int     `short:"j" default:"${workers}" help:"Concurrent files (0 picks from the backend)."`
	Backend   string  `default:"${backend}" enum:"auto,accelerated,plain" help:"Compute backend."`
	ReportDir string  `default:"${report_dir}" help:"Directory for the JSON run report."`
	DryRun    bool    `short:"n" default:"${dry_run}" help:"Analyze without rewriting files."`
	Check     bool    `help:"Check ffmpeg availability and the selected backend, then exit."`
	Version   bool    `short:"v" help:"Show version information."`
}

func main() {
	if err := run(); err != nil {
		if !errors.Is(err, errFailures) {
			cli.PrintError(err.Error())
		}
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	args := &CLI{}
	kong.Parse(args,
		kong.Name("trimsilence"),
		kong.Description("Trim leading and trailing silence from audio files in place"),
		kong.UsageOnError(),
		kong.Vars{
			"audio_dir":  cfg.AudioDir,
			"threshold":  strconv.FormatFloat(cfg.SilenceThresholdDB, 'g', -1, 64),
			"window":     strconv.FormatFloat(cfg.WindowSeconds, 'g', -1, 64),
			"min_kept":   strconv.FormatFloat(cfg.MinKeptDurationSeconds, 'g', -1, 64),
			"workers":    strconv.Itoa(cfg.MaxWorkers),
			"backend":    cfg.Backend,
			"report_dir": cfg.ReportDir,
			"dry_run":    strconv.FormatBool(cfg.DryRun),
		},
		kong.Help(cli.StyledHelpPrinter("Trim leading and trailing silence from audio files in place")),
	)

	if args.Version {
		cli.PrintVersion(os.Stdout, version)
		return nil
	}

	args.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if args.Check {
		if !cli.PrintCheck(os.Stdout, deps.FFmpeg.Check(ctx), deps.Backend) {
			return errFailures
		}
		return nil
	}

	paths, err := audio.ListAudioFiles(cfg.AudioDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		logger.Warn("no audio files found", slog.String("dir", cfg.AudioDir))
	}

	logger.Info("starting trim run",
		slog.String("dir", cfg.AudioDir),
		slog.Int("files", len(paths)),
		slog.Float64("threshold_db", cfg.SilenceThresholdDB),
		slog.Float64("window_seconds", cfg.WindowSeconds),
		slog.Int("workers", deps.Workers(len(paths))),
		slog.Bool("dry_run", cfg.DryRun),
	)

	report := deps.Run(ctx, paths)
	cli.PrintReport(os.Stdout, report)

	if _, err := deps.PublishReport(ctx, report); err != nil {
		logger.Error("failed to save report", slog.String("error", err.Error()))
	}

	if report.HasFailures() {
		return errFailures
	}
	return nil
}

// apply copies flag values over the loaded configuration.
func (c *CLI) apply(cfg *config.Config) {
	cfg.AudioDir = c.Dir
	cfg.SilenceThresholdDB = c.Threshold
	cfg.WindowSeconds = c.Window
	cfg.MinKeptDurationSeconds = c.MinKept
	cfg.MaxWorkers = c.Workers
	cfg.Backend = c.Backend
	cfg.ReportDir = c.ReportDir
	cfg.DryRun = c.DryRun
}
