package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/reflector/internal/cli/ui"
	"github.com/conduit-lang/reflector/internal/orm/introspect"
	"github.com/conduit-lang/reflector/internal/orm/schema"
)

type inspectOptions struct {
	url string
	out string
}

func newInspectCommand(a *app) *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Introspect a database and write a catalog snapshot",
		Long: `Read the tables, columns and keys of a live database and write them as a
catalog snapshot. The snapshot is written as YAML to stdout unless --out names
a .yml, .yaml or .json file. The cached catalog for the database is refreshed.

Examples:
  reflector inspect --url postgres://app@localhost/bazaar --out bazaar.yml
  reflector inspect --url sqlite://bazaar.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "Database URL (default database.url)")
	cmd.Flags().StringVar(&opts.out, "out", "", "Snapshot file to write")

	return cmd
}

func runInspect(cmd *cobra.Command, a *app, opts *inspectOptions) error {
	url := a.databaseURL(opts.url)
	if url == "" {
		return errNoSource
	}

	format := schema.FormatYAML
	if opts.out != "" {
		f, err := schema.FormatFromPath(opts.out)
		if err != nil {
			return err
		}
		format = f
	}

	ctx := cmd.Context()
	p := a.newPool()
	defer p.Close()

	catalog, err := a.readCatalog(ctx, p, url)
	if err != nil {
		return err
	}

	store := a.openCache(ctx)
	defer store.Close()
	key := introspect.SnapshotKey(url, a.cfg.Database.Schemas)
	if err := introspect.NewSnapshotStore(store, a.cfg.Cache.TTL, a.logger).Save(ctx, key, catalog); err != nil {
		a.logger.Warn("caching catalog failed", zap.String("key", key), zap.Error(err))
	}

	if opts.out == "" {
		return schema.Encode(cmd.OutOrStdout(), catalog, format)
	}

	f, err := os.Create(opts.out)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := schema.Encode(f, catalog, format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	ui.Success(cmd.OutOrStdout(), fmt.Sprintf("wrote %d tables to %s", catalog.Len(), opts.out), a.noColor)
	return nil
}
