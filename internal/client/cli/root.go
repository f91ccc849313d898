package cli

import (
	"context"

	"github.com/farmdeck/farmsync/internal/client/config"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree. Flag defaults come from cfg, which
// already holds built-in defaults and the JSON file overlay.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "farmsync",
		Short:         "Offline-first farm records client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cfg.BindFlags(root.PersistentFlags())
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to JSON config file")
	root.PersistentPreRun = func(*cobra.Command, []string) {
		flags.Apply()
	}

	root.AddCommand(
		newSyncCommand(cfg),
		newWatchCommand(cfg),
		newCreateCommand(cfg),
		newUpdateCommand(cfg),
		newDeleteCommand(cfg),
		newGetCommand(cfg),
		newListCommand(cfg),
		newQueueCommand(cfg),
		newStatusCommand(cfg),
	)
	return root
}

// withApp opens the App for the duration of one command.
func withApp(cfg *config.Config, onStatus func(bool), fn func(ctx context.Context, cmd *cobra.Command, a *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := NewApp(ctx, cfg, onStatus)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, cmd, a, args)
	}
}
