package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/client/config"
	"github.com/spf13/cobra"
)

func newCreateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "create <entity> <json>",
		Short:   "Create a record (queued when offline)",
		Example: `  farmsync create paddocks '{"name":"River Flat","area_ha":14.2}'`,
		Args:    cobra.ExactArgs(2),
		RunE: withApp(cfg, nil, func(ctx context.Context, cmd *cobra.Command, a *App, args []string) error {
			data, err := parseRecord(args[1])
			if err != nil {
				return err
			}
			rec, err := a.syncer.Create(ctx, args[0], data)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		}),
	}
}

func newUpdateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "update <entity> <id> <json>",
		Short:   "Patch a record; null removes a field (queued when offline)",
		Example: `  farmsync update mobs 5f0c... '{"count":118}'`,
		Args:    cobra.ExactArgs(3),
		RunE: withApp(cfg, nil, func(ctx context.Context, cmd *cobra.Command, a *App, args []string) error {
			patch, err := parseRecord(args[2])
			if err != nil {
				return err
			}
			rec, err := a.syncer.Update(ctx, args[0], args[1], patch)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		}),
	}
}

func newDeleteCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete a record (queued when offline)",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(cfg, nil, func(ctx context.Context, cmd *cobra.Command, a *App, args []string) error {
			if err := a.syncer.Delete(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s/%s\n", args[0], args[1])
			return nil
		}),
	}
}

func newGetCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <entity> <id>",
		Short: "Show a record from the local cache",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(cfg, nil, func(ctx context.Context, cmd *cobra.Command, a *App, args []string) error {
			rec, err := a.syncer.Get(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("%s/%s: %w", args[0], args[1], err)
			}
			return printJSON(cmd.OutOrStdout(), rec.Data)
		}),
	}
}

func newListCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list <entity>",
		Short: "List cached records of one entity type",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(cfg, nil, func(ctx context.Context, cmd *cobra.Command, a *App, args []string) error {
			list, err := a.syncer.List(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, rec := range list {
				marker := ""
				if rec.Provisional {
					marker = " (pending)"
				}
				line, err := json.Marshal(rec.Data)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s%s\n", line, marker)
			}
			return nil
		}),
	}
}

func parseRecord(raw string) (api.Record, error) {
	var rec api.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("invalid JSON object: null")
	}
	return rec, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
