package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/reflector/internal/cli/ui"
	"github.com/conduit-lang/reflector/internal/orm/relationships"
	"github.com/conduit-lang/reflector/internal/orm/schema"
)

type relationsOptions struct {
	file        string
	url         string
	table       string
	format      string
	concurrency int
	refresh     bool
}

// tableReport is the serialized relationships of one table
type tableReport struct {
	Table   string         `yaml:"table" json:"table"`
	Owned   bool           `yaml:"owned,omitempty" json:"owned,omitempty"`
	Members []memberReport `yaml:"members" json:"members"`
}

type memberReport struct {
	Name    string `yaml:"name" json:"name"`
	Kind    string `yaml:"kind" json:"kind"`
	Target  string `yaml:"target" json:"target"`
	Column  string `yaml:"column,omitempty" json:"column,omitempty"`
	Through string `yaml:"through,omitempty" json:"through,omitempty"`
}

func newRelationsCommand(a *app) *cobra.Command {
	opts := &relationsOptions{}

	cmd := &cobra.Command{
		Use:   "relations",
		Short: "Classify the relationships between tables",
		Long: `Classify how every table relates to the others and name the members
a generator would emit for them.

The catalog is read from a snapshot file (--file) or introspected from a
database (--url, or database.url in reflector.yml). Introspected catalogs are
cached; --refresh reads the database again.

Examples:
  reflector relations --file bazaar.yml
  reflector relations --url postgres://app@localhost/bazaar --table bazaar.product
  reflector relations --file bazaar.yml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelations(cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Catalog snapshot file (.yml, .yaml or .json)")
	cmd.Flags().StringVar(&opts.url, "url", "", "Database URL")
	cmd.Flags().StringVarP(&opts.table, "table", "t", "", "Only show this table (schema.name or name)")
	cmd.Flags().StringVarP(&opts.format, "format", "o", "table", "Output format: table, yaml or json")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Tables classified at once (default GOMAXPROCS)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "Ignore the cached catalog")

	return cmd
}

func runRelations(cmd *cobra.Command, a *app, opts *relationsOptions) error {
	switch opts.format {
	case "table", "yaml", "json":
	default:
		return fmt.Errorf("unknown format %q: expected table, yaml or json", opts.format)
	}

	ctx := cmd.Context()
	catalog, err := a.loadCatalog(ctx, opts.file, opts.url, opts.refresh)
	if err != nil {
		return err
	}

	graph, err := relationships.BuildGraph(ctx, catalog, relationships.Options{
		Concurrency: opts.concurrency,
		Logger:      a.logger,
	})
	if err != nil {
		return err
	}

	nodes := graph.Nodes()
	if opts.table != "" {
		t, err := findTable(catalog, opts.table, a.noColor)
		if err != nil {
			return err
		}
		node, _ := graph.Node(t.Schema, t.Name)
		nodes = []*relationships.Node{node}
	}

	reports, err := buildReports(nodes)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch opts.format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	default:
		renderReports(out, reports, a.noColor)
		return nil
	}
}

// findTable resolves schema.name, or a bare name when it is unique across schemas
func findTable(c *schema.Catalog, ref string, noColor bool) (*schema.Table, error) {
	if schemaName, name, ok := strings.Cut(ref, "."); ok {
		if t, found := c.Lookup(schemaName, name); found {
			return t, nil
		}
	} else {
		var matches []*schema.Table
		for _, t := range c.Tables() {
			if t.Name == ref {
				matches = append(matches, t)
			}
		}
		switch len(matches) {
		case 1:
			return matches[0], nil
		case 0:
		default:
			names := make([]string, 0, len(matches))
			for _, t := range matches {
				names = append(names, t.CompleteName())
			}
			err := fmt.Errorf("table name %s is ambiguous", ref)
			return nil, &messageError{err: err, msg: ui.Message{
				Level:       ui.LevelError,
				Problem:     err.Error(),
				Detail:      "qualify it with its schema",
				Suggestions: names,
				NoColor:     noColor,
			}}
		}
	}

	candidates := make([]string, 0, c.Len())
	for _, t := range c.Tables() {
		if strings.Contains(ref, ".") {
			candidates = append(candidates, t.CompleteName())
		} else {
			candidates = append(candidates, t.Name)
		}
	}
	err := fmt.Errorf("%w: %s", schema.ErrTableNotFound, ref)
	return nil, &messageError{err: err, msg: ui.TableNotFound(ref, candidates, noColor)}
}

func buildReports(nodes []*relationships.Node) ([]tableReport, error) {
	reports := make([]tableReport, 0, len(nodes))
	for _, n := range nodes {
		r := tableReport{Table: n.Table.CompleteName(), Owned: n.Owned, Members: make([]memberReport, 0, len(n.Members))}
		for _, m := range n.Members {
			kind, err := m.Ref.Kind()
			if err != nil {
				return nil, err
			}
			mr := memberReport{Name: m.Name, Kind: kind.String(), Target: m.Ref.Table.CompleteName()}
			if m.Ref.Column != nil {
				mr.Column = m.Ref.Column.Name
			}
			if m.Ref.LinkerTable != nil {
				mr.Through = m.Ref.LinkerTable.CompleteName()
			}
			r.Members = append(r.Members, mr)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func renderReports(w io.Writer, reports []tableReport, noColor bool) {
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := r.Table
		if r.Owned {
			title += " (owned)"
		}
		ui.Header(w, title, noColor)
		if len(r.Members) == 0 {
			fmt.Fprintln(w, "no relationships")
			continue
		}

		table := ui.NewTable(w, []string{"Member", "Kind", "Target", "Via"}, noColor)
		for _, m := range r.Members {
			via := m.Column
			if m.Through != "" {
				via = m.Through
			}
			table.AddRow(m.Name, m.Kind, m.Target, via)
		}
		table.Render()
	}
}
