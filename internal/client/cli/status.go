package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/farmdeck/farmsync/internal/client/config"
	"github.com/farmdeck/farmsync/internal/common"
	"github.com/spf13/cobra"
)

const statusProbeTimeout = 3 * time.Second

func newStatusCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity, queue length and the pull watermark",
		Args:  cobra.NoArgs,
		RunE: withApp(cfg, nil, func(ctx context.Context, cmd *cobra.Command, a *App, _ []string) error {
			out := cmd.OutOrStdout()

			pctx, cancel := context.WithTimeout(ctx, statusProbeTimeout)
			err := a.prober.Ping(pctx)
			cancel()
			if err != nil {
				fmt.Fprintf(out, "server:      offline (%v)\n", err)
			} else {
				fmt.Fprintln(out, "server:      online")
			}

			queued, err := a.store.Queue.Len(ctx)
			if err != nil {
				return err
			}
			provisional, err := a.store.Cache.CountProvisional(ctx)
			if err != nil {
				return err
			}
			wm, movedAt, err := a.store.Watermark.Status(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "queued:      %d\n", queued)
			fmt.Fprintf(out, "provisional: %d\n", provisional)
			if wm.IsZero() {
				fmt.Fprintln(out, "last pull:   never")
			} else {
				fmt.Fprintf(out, "last pull:   %s (synced %s)\n",
					wm.UTC().Format(common.TimeFormat), movedAt.Local().Format(time.DateTime))
			}
			return nil
		}),
	}
}
