package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/thumbsync/internal/config"
	thserrors "github.com/five82/thumbsync/internal/errors"
	"github.com/five82/thumbsync/internal/processing"
)

func newManifestCommand() *cobra.Command {
	var ca commonArgs

	cmd := &cobra.Command{
		Use:   "manifest ROOT",
		Short: "Write dates from an export's JSON manifests to its media",
		Long: `Reads every .json file under ROOT that has a "messages" list and writes each
photo, video and gif's creation timestamp to the file it references. Files
that cannot be found are listed at the end. Exits with status 1 when any file
was not found or could not be tagged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ca.buildConfig(cmd, args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return executeManifest(cmd, &ca, cfg)
		},
	}

	ca.register(cmd)
	return cmd
}

func executeManifest(cmd *cobra.Command, ca *commonArgs, cfg *config.Config) error {
	env, err := ca.newRunEnv(cmd, "manifest", cfg)
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

	summary, err := processing.RunManifest(env.ctx, cfg, session.Deps, env.rep)
	if err != nil {
		if thserrors.IsCancelled(err) {
			env.rep.Warning("Tagging cancelled")
			return err
		}
		return env.reportError("Manifest run aborted", err, abortSuggestion(cfg))
	}

	if summary.Incomplete() {
		return &reportedError{err: fmt.Errorf("%d file(s) not found, %d failed", len(summary.NotFound), len(summary.Failures))}
	}
	env.rep.OperationComplete(fmt.Sprintf("Tagged %d media files", summary.Tagged))
	return nil
}
