package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/farmdeck/farmsync/internal/client/config"
	"github.com/farmdeck/farmsync/internal/common"
	"github.com/spf13/cobra"
)

func newQueueCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect writes waiting for the server",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List queued writes, oldest first",
		Args:  cobra.NoArgs,
		RunE: withApp(cfg, nil, func(ctx context.Context, cmd *cobra.Command, a *App, _ []string) error {
			list, err := a.store.Queue.List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tOP\tENTITY\tRECORD\tQUEUED\tATTEMPTS\tLAST ERROR")
			for _, p := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					p.ID, p.Op, p.Entity, p.Payload.ID(), p.EnqueuedAt.UTC().Format(common.TimeFormat), p.Attempts, p.LastError)
			}
			return tw.Flush()
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "drop <action-id>",
		Short: "Remove a queued write, e.g. one the server rejected",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(cfg, nil, func(ctx context.Context, cmd *cobra.Command, a *App, args []string) error {
			removed, err := a.store.Queue.Remove(ctx, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("action %s: %w", args[0], common.ErrorNotFound)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", args[0])
			return nil
		}),
	})

	return cmd
}
