package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/thumbsync/internal/config"
	thserrors "github.com/five82/thumbsync/internal/errors"
	"github.com/five82/thumbsync/internal/processing"
)

// matchArgs holds the flags specific to the match command.
type matchArgs struct {
	commonArgs
	rename         bool
	debugDir       string
	threshold      float64
	ratioTolerance float64
	strategy       string
	workers        int
}

func newMatchCommand() *cobra.Command {
	var ma matchArgs

	cmd := &cobra.Command{
		Use:   "match ROOT",
		Short: "Match thumbnails to their videos and copy capture dates",
		Long: `Walks ROOT for directories named "thumbnails". Each image inside is compared
with the first frame of every .mp4 in the parent directory. The first video
whose frame matches (or the best one with --strategy best) has its capture
date written to every date tag of the thumbnail. A video is bound to at most
one thumbnail per run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ma.buildMatchConfig(cmd, args[0])
			if err != nil {
				return err
			}
			return executeMatch(cmd, &ma, cfg)
		},
	}

	ma.registerMatch(cmd)
	return cmd
}

func (ma *matchArgs) registerMatch(cmd *cobra.Command) {
	ma.register(cmd)
	flags := cmd.Flags()
	flags.BoolVarP(&ma.rename, "rename", "r", false, "Rename matched thumbnails to <video>_thumb<ext>")
	flags.StringVar(&ma.debugDir, "debug-dir", "", "Write thumbnail/frame comparison images to this directory")
	flags.Float64Var(&ma.threshold, "threshold", config.DefaultThreshold, "Accept a video when 1 - similarity is below this")
	flags.Float64Var(&ma.ratioTolerance, "ratio-tolerance", config.DefaultRatioTolerance, "Maximum aspect ratio difference")
	flags.StringVar(&ma.strategy, "strategy", string(config.DefaultStrategy), "Assignment strategy: first or best")
	flags.IntVar(&ma.workers, "workers", config.DefaultWorkers, "Candidate videos scored concurrently")
}

func (ma *matchArgs) buildMatchConfig(cmd *cobra.Command, root string) (*config.Config, error) {
	cfg, err := ma.buildConfig(cmd, root)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("rename") {
		cfg.Rename = ma.rename
	}
	if flags.Changed("debug-dir") {
		cfg.DebugDir = ma.debugDir
	}
	if flags.Changed("threshold") {
		cfg.Threshold = ma.threshold
	}
	if flags.Changed("ratio-tolerance") {
		cfg.RatioTolerance = ma.ratioTolerance
	}
	if flags.Changed("strategy") {
		s, err := config.ParseStrategy(ma.strategy)
		if err != nil {
			return nil, thserrors.NewConfigError(err)
		}
		cfg.Strategy = s
	}
	if flags.Changed("workers") {
		cfg.Workers = ma.workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func executeMatch(cmd *cobra.Command, ma *matchArgs, cfg *config.Config) error {
	env, err := ma.newRunEnv(cmd, "match", cfg)
	if err != nil {
		return err
	}
	defer env.close()
	env.logConfig(cfg)

	session, err := processing.Open(cfg, env.runID, env.log)
	if err != nil {
		return env.reportError("Cannot start run", err, startSuggestion(err))
	}
	defer func() {
		if err := session.Close(); err != nil {
			env.log.Warn("%v", err)
		}
	}()

	summary, err := processing.Run(env.ctx, cfg, session.Deps, env.rep)
	if err != nil {
		if thserrors.IsCancelled(err) {
			env.rep.Warning("Matching cancelled")
			return err
		}
		return env.reportError("Match aborted", err, abortSuggestion(cfg))
	}

	env.rep.OperationComplete(fmt.Sprintf("Matched %d of %d thumbnails", len(summary.Matched), summary.Total))
	return nil
}

// abortSuggestion hints at how to get past an aborted run. Without fail-fast
// the abort came from setup, so there is nothing generic to suggest.
func abortSuggestion(cfg *config.Config) string {
	if cfg.FailFast {
		return "Re-run without --fail-fast to collect every failure"
	}
	return ""
}

// startSuggestion hints at the usual cause of a failed session start.
func startSuggestion(err error) string {
	switch {
	case thserrors.IsKind(err, thserrors.KindPath):
		return "Check that ROOT exists and is a directory"
	case thserrors.IsKind(err, thserrors.KindCommand):
		return "Check that exiftool is installed or set --exiftool"
	case thserrors.IsKind(err, thserrors.KindOperationFailed):
		return "Wait for the other run to finish"
	default:
		return ""
	}
}
