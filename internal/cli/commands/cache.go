package commands

import (
	"github.com/spf13/cobra"

	"github.com/conduit-lang/reflector/internal/cli/ui"
	"github.com/conduit-lang/reflector/internal/orm/introspect"
)

func newCacheCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached catalogs",
		Long: `Manage the catalogs cached by relations and inspect.

Available subcommands:
  clear - Drop every cached catalog`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached catalog",
		Long:  "Remove every catalog snapshot from the configured cache so the next run introspects again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store := a.openCache(ctx)
			defer store.Close()

			if err := introspect.NewSnapshotStore(store, a.cfg.Cache.TTL, a.logger).Purge(ctx); err != nil {
				return err
			}
			ui.Success(cmd.OutOrStdout(), "cached catalogs cleared", a.noColor)
			return nil
		},
	})

	return cmd
}
