package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/thumbsync/internal/config"
	"github.com/five82/thumbsync/internal/logging"
	"github.com/five82/thumbsync/internal/processing"
	"github.com/five82/thumbsync/internal/reporter"
	"github.com/five82/thumbsync/internal/util"
)

// commonArgs are the flags shared by match and manifest.
type commonArgs struct {
	configPath  string
	envFile     string
	logDir      string
	noLog       bool
	verbose     bool
	json        bool
	backup      bool
	failFast    bool
	exiftool    string
	ffmpeg      string
	ffprobe     string
	metricsFile string
	eventsFile  string
}

func (a *commonArgs) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Configuration file (default ~/.config/thumbsync/config.toml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "Environment file loaded before reading THUMBSYNC_* variables")
	flags.StringVarP(&a.logDir, "log-dir", "l", "", "Log directory")
	flags.BoolVar(&a.noLog, "no-log", false, "Disable log file creation")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	flags.BoolVar(&a.json, "json", false, "Emit NDJSON events on stdout instead of text")
	flags.BoolVarP(&a.backup, "backup", "b", false, "Keep exiftool's FILE_original backups")
	flags.BoolVarP(&a.failFast, "fail-fast", "f", false, "Stop at the first per-file failure")
	flags.StringVar(&a.exiftool, "exiftool", "", "exiftool executable")
	flags.StringVar(&a.ffmpeg, "ffmpeg", "", "ffmpeg executable")
	flags.StringVar(&a.ffprobe, "ffprobe", "", "ffprobe executable")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	flags.StringVar(&a.eventsFile, "events-file", "", "Append NDJSON events to this file as well")
}

// buildConfig layers defaults, the TOML file, the environment and explicit
// flags, in that order, for root.
func (a *commonArgs) buildConfig(cmd *cobra.Command, root string) (*config.Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid root path: %w", err)
	}

	cfg := config.NewConfig(absRoot)

	file, _, _, err := config.LoadFile(a.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyFile(file); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := config.LoadDotEnv(a.envFile); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-dir") {
		cfg.LogDir = a.logDir
	}
	if flags.Changed("backup") {
		cfg.Backup = a.backup
	}
	if flags.Changed("fail-fast") {
		cfg.FailFast = a.failFast
	}
	if flags.Changed("exiftool") {
		cfg.ExifToolPath = a.exiftool
	}
	if flags.Changed("ffmpeg") {
		cfg.FFmpegPath = a.ffmpeg
	}
	if flags.Changed("ffprobe") {
		cfg.FFprobePath = a.ffprobe
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = a.metricsFile
	}
	if flags.Changed("events-file") {
		cfg.EventsFile = a.eventsFile
	}

	if cfg.LogDir == "" {
		cfg.LogDir = defaultLogDir()
	}
	return cfg, nil
}

func defaultLogDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, appName, "logs")
	}
	return filepath.Join(os.TempDir(), appName, "logs")
}

// runEnv is the per-invocation plumbing shared by the run commands.
type runEnv struct {
	runID  string
	log    *logging.FileLogger
	rep    reporter.Reporter
	events io.Closer
	ctx    context.Context
	cancel context.CancelFunc
}

// newRunEnv sets up file logging, the reporter and a context cancelled by
// SIGINT or SIGTERM.
func (a *commonArgs) newRunEnv(cmd *cobra.Command, command string, cfg *config.Config) (*runEnv, error) {
	runID := processing.NewRunID()

	logger, err := logging.Setup(cfg.LogDir, command, runID, a.verbose, a.noLog)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	level := logging.LevelInfo
	if a.verbose {
		level = logging.LevelDebug
	}
	var sink io.Writer = io.Discard
	if logger != nil {
		sink = logger.Writer()
	}
	logging.SetGlobal(logging.New(logging.Config{Level: level, Output: sink, Enabled: logger != nil}).WithRun(runID))

	var rep reporter.Reporter
	if a.json {
		rep = reporter.NewJSONReporterWithWriter(cmd.OutOrStdout())
	} else {
		rep = reporter.NewTerminalReporter(a.verbose)
	}

	var events io.Closer
	if cfg.EventsFile != "" {
		eventRep, closer, err := reporter.NewEventFileReporter(cfg.EventsFile)
		if err != nil {
			_ = logger.Close()
			return nil, err
		}
		rep = reporter.NewCompositeReporter(rep, eventRep)
		events = closer
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)

	return &runEnv{runID: runID, log: logger, rep: rep, events: events, ctx: ctx, cancel: cancel}, nil
}

func (e *runEnv) close() {
	e.cancel()
	if e.events != nil {
		_ = e.events.Close()
	}
	_ = e.log.Close()
}

// logConfig writes the effective configuration to the run log.
func (e *runEnv) logConfig(cfg *config.Config) {
	e.log.Info("Root: %s", cfg.InputDir)
	e.log.Info("Threshold: %g, aspect tolerance: %g, strategy: %s, workers: %d",
		cfg.Threshold, cfg.RatioTolerance, cfg.Strategy, cfg.Workers)
	e.log.Info("Video extensions: %v, image extensions: %v",
		util.SortedExtensions(cfg.VideoExtensionSet()), util.SortedExtensions(cfg.ImageExtensionSet()))
	e.log.Info("Tools: exiftool=%s ffmpeg=%s ffprobe=%s backend=%s",
		cfg.ExifToolPath, cfg.FFmpegPath, cfg.FFprobePath, processing.BackendName)
	e.log.Info("Backup: %v, rename: %v, fail-fast: %v", cfg.Backup, cfg.Rename, cfg.FailFast)
}

// reportError shows a fatal error through the reporter and marks it as
// shown.
func (e *runEnv) reportError(title string, err error, suggestion string) error {
	e.log.Error("%s: %v", title, err)
	e.rep.Error(reporter.ReporterError{
		Title:      title,
		Message:    err.Error(),
		Suggestion: suggestion,
	})
	return &reportedError{err: err}
}

// reportedError is an error already shown through the reporter.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }
