package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/farmdeck/farmsync/internal/client/config"
	"github.com/farmdeck/farmsync/internal/client/syncer"
	"github.com/farmdeck/farmsync/internal/common"
	"github.com/spf13/cobra"
)

func newSyncCommand(cfg *config.Config) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle: push queued writes, then pull changes",
		Args:  cobra.NoArgs,
		RunE: withApp(cfg, nil, func(ctx context.Context, cmd *cobra.Command, a *App, _ []string) error {
			run := a.syncer.RunCycle
			if full {
				run = a.syncer.Resync
			}
			res, err := run(ctx)
			if res != nil {
				printCycle(cmd.OutOrStdout(), res)
			}
			return err
		}),
	}
	cmd.Flags().BoolVar(&full, "full", false, "pull the whole journal instead of changes since the last pull")
	return cmd
}

func newWatchCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep syncing while the server is reachable (Ctrl+C to stop)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			onStatus := func(online bool) {
				if online {
					fmt.Fprintln(out, "online")
				} else {
					fmt.Fprintln(out, "offline")
				}
			}
			return withApp(cfg, onStatus, func(ctx context.Context, _ *cobra.Command, a *App, _ []string) error {
				return a.syncer.Watch(ctx)
			})(cmd, args)
		},
	}
}

func printCycle(w io.Writer, res *syncer.CycleResult) {
	if res.Skipped {
		fmt.Fprintln(w, "server unreachable, nothing synced")
		return
	}
	fmt.Fprintf(w, "pushed %d, pulled %d changes and %d deletions\n", res.Applied, res.Changes, res.Tombstones)
	if res.Conflict != nil {
		fmt.Fprintf(w, "blocked: action %s (%s %s): %s\n", res.Conflict.ActionID, res.Conflict.Op, res.Conflict.Entity, res.Conflict.Reason)
	}
	if !res.Watermark.IsZero() {
		fmt.Fprintf(w, "up to %s\n", res.Watermark.UTC().Format(common.TimeFormat))
	}
}
