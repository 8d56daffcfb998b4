// Package config provides configuration loading from environment variables
// and an optional .env file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalid is returned when a setting is out of range.
	ErrInvalid = errors.New("config: invalid configuration")
	// ErrS3RegionRequired is returned when S3_BUCKET is set without S3_REGION.
	ErrS3RegionRequired = errors.New("config: S3_REGION is required when S3_BUCKET is set")
)

// Config holds all configuration for the application.
type Config struct {
	// Input settings
	AudioDir string `env:"AUDIO_DIR, default=audio" json:"audio_dir" validate:"required"`

	// Detection settings
	SilenceThresholdDB     float64 `env:"SILENCE_THRESHOLD_DB, default=-40" json:"silence_threshold_db" validate:"lte=0,gte=-200"`
	WindowSeconds          float64 `env:"WINDOW_SECONDS, default=0.1" json:"window_seconds" validate:"gt=0,lte=10"`
	MinKeptDurationSeconds float64 `env:"MIN_KEPT_DURATION_SECONDS, default=0.1" json:"min_kept_duration_seconds" validate:"gte=0"`

	// Processing settings
	MaxWorkers int           `env:"MAX_WORKERS, default=0" json:"max_workers" validate:"gte=0"` // 0 picks from the backend
	Backend    string        `env:"BACKEND, default=auto" json:"backend" validate:"oneof=auto accelerated plain"`
	JobTimeout time.Duration `env:"JOB_TIMEOUT, default=0" json:"job_timeout" validate:"gte=0"`
	DryRun     bool          `env:"DRY_RUN, default=false" json:"dry_run"`

	// Tool settings
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path" validate:"required"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path" validate:"required"`

	// Report settings
	ReportDir string `env:"REPORT_DIR" json:"report_dir,omitempty"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Prefix           string `env:"S3_PREFIX, default=reports" json:"s3_prefix,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=text json"`                 // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level" validate:"oneof=debug info warn warning error"` // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// ReportsEnabled returns true if run reports should be persisted.
func (c *Config) ReportsEnabled() bool {
	return c.ReportDir != "" || c.S3Enabled()
}

// Load reads an optional .env file from the working directory, then
// configuration from environment variables using go-envconfig, and validates
// the result. Variables already set in the environment win over .env entries.
func Load() (*Config, error) {
	// A missing .env file is not an error
	_ = godotenv.Load()

	return load(context.Background(), envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all settings are within range. It normalizes the
// case of enumerated values first, so flags may be given in any case.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(c.Backend)
	c.LogFormat = strings.ToLower(c.LogFormat)
	c.LogLevel = strings.ToLower(c.LogLevel)

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if c.S3Bucket != "" && c.S3Region == "" {
		return ErrS3RegionRequired
	}

	return nil
}

// NewLogger creates a structured logger writing to stderr based on the
// configuration. Stdout is left for the run summary.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stderr)
}

// NewLoggerTo creates a structured logger writing to w.
// When LogFormat is "json", it outputs JSON logs suitable for log shipping.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{AudioDir: %s, SilenceThresholdDB: %g, WindowSeconds: %g, MinKeptDurationSeconds: %g, MaxWorkers: %d, Backend: %s, JobTimeout: %s, DryRun: %t, ReportDir: %s, S3Bucket: %s, S3Region: %s, S3Prefix: %s, LogFormat: %s, LogLevel: %s}",
		c.AudioDir,
		c.SilenceThresholdDB,
		c.WindowSeconds,
		c.MinKeptDurationSeconds,
		c.MaxWorkers,
		c.Backend,
		c.JobTimeout,
		c.DryRun,
		c.ReportDir,
		c.S3Bucket,
		c.S3Region,
		c.S3Prefix,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
