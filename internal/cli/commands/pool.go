package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/reflector/internal/cli/ui"
	"github.com/conduit-lang/reflector/internal/orm/platform"
	"github.com/conduit-lang/reflector/internal/orm/pool"
)

type poolOptions struct {
	url     string
	reserve int
	borrow  int
}

func newPoolCommand(a *app) *cobra.Command {
	opts := &poolOptions{}

	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Exercise the connection pool against a database",
		Long: `Reserve connections to a database, borrow and ping some of them, release
them and print the pool counters at each step.

Examples:
  reflector pool --url postgres://app@localhost/bazaar --reserve 4 --borrow 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("reserve") {
				opts.reserve = a.cfg.Pool.Reserve
			}
			return runPool(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "Database URL (default database.url)")
	cmd.Flags().IntVar(&opts.reserve, "reserve", 1, "Free connections to open up front (default pool.reserve)")
	cmd.Flags().IntVar(&opts.borrow, "borrow", 1, "Connections to borrow")

	return cmd
}

func runPool(cmd *cobra.Command, a *app, opts *poolOptions) error {
	url := a.databaseURL(opts.url)
	if url == "" {
		return errNoSource
	}
	if opts.reserve < 0 || opts.borrow < 0 {
		return fmt.Errorf("--reserve and --borrow must not be negative")
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	p := a.newPool(pool.WithObserver(func(ev pool.DisposeEvent) {
		ui.Message{
			Level:   ui.LevelWarning,
			Problem: fmt.Sprintf("connection %s disposed: %s", ev.ConnID, ev.Reason),
			Detail:  platform.Redact(ev.URL),
			NoColor: a.noColor,
		}.Write(cmd.ErrOrStderr())
	}))
	defer p.Close()

	if err := p.ReserveConnection(ctx, url, opts.reserve); err != nil {
		return err
	}
	renderStats(out, "reserved", p.Stats(url), a.noColor)

	borrowed := make([]*pool.Conn, 0, opts.borrow)
	defer func() {
		for _, c := range borrowed {
			_ = p.Release(c)
		}
	}()
	for i := 0; i < opts.borrow; i++ {
		c, err := p.GetDBWithURL(ctx, url)
		if err != nil {
			return err
		}
		borrowed = append(borrowed, c)

		db, err := c.Database()
		if err != nil {
			return err
		}
		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("ping %s: %w", c.ID, err)
		}
	}
	fmt.Fprintln(out)
	renderStats(out, "borrowed", p.Stats(url), a.noColor)

	for _, c := range borrowed {
		if err := p.Release(c); err != nil {
			return err
		}
	}
	borrowed = borrowed[:0]
	fmt.Fprintln(out)
	renderStats(out, "released", p.Stats(url), a.noColor)

	free := p.TotalFreeConnections()
	if err := p.Close(); err != nil {
		return err
	}
	ui.Success(out, fmt.Sprintf("pool closed, %d free connections released", free), a.noColor)
	return nil
}

func renderStats(w io.Writer, step string, s pool.Stats, noColor bool) {
	ui.Header(w, step, noColor)
	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow("url", platform.Redact(s.URL))
	kv.AddRow("free", strconv.Itoa(s.Free))
	kv.AddRow("borrowed", strconv.Itoa(s.Borrowed))
	kv.AddRow("reserved", strconv.Itoa(s.Reserved))
	kv.Render()
}
