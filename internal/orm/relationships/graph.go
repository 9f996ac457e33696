package relationships

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/reflector/internal/orm/schema"
)

// Node is one table of the relationship graph with its named members
type Node struct {
	Table   *schema.Table
	Members []Member
	// Owned is true when the table only exists as part of the single table it refers to
	Owned bool
}

// Graph holds the classification of every table in a catalog, in catalog order
type Graph struct {
	nodes []*Node
	index map[string]*Node
}

// Options controls graph construction
type Options struct {
	// Concurrency bounds how many tables are classified at once. Zero means GOMAXPROCS.
	Concurrency int
	Logger      *zap.Logger
}

// BuildGraph classifies every table of the catalog. Tables are classified concurrently over
// the shared read-only catalog; the first error cancels the remaining work.
func BuildGraph(ctx context.Context, catalog *schema.Catalog, opts Options) (*Graph, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	tables := catalog.Tables()
	nodes := make([]*Node, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, t := range tables {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			node, err := classifyNode(t, catalog)
			if err != nil {
				return err
			}
			nodes[i] = node
			logger.Debug("classified table",
				zap.String("table", t.CompleteName()),
				zap.Int("members", len(node.Members)),
				zap.Bool("owned", node.Owned),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	graph := &Graph{nodes: nodes, index: make(map[string]*Node, len(nodes))}
	for _, n := range nodes {
		graph.index[n.Table.CompleteName()] = n
	}
	logger.Info("relationship graph built", zap.Int("tables", len(nodes)))
	return graph, nil
}

func classifyNode(t *schema.Table, catalog *schema.Catalog) (*Node, error) {
	refs, err := AllReferencedTables(t, catalog)
	if err != nil {
		return nil, err
	}
	members, err := MemberNames(t, refs)
	if err != nil {
		return nil, err
	}
	owned, err := IsOwned(t, catalog)
	if err != nil {
		return nil, err
	}
	return &Node{Table: t, Members: members, Owned: owned}, nil
}

// Nodes returns the nodes in catalog order
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Node looks up the node of a table
func (g *Graph) Node(schemaName, name string) (*Node, bool) {
	n, ok := g.index[schemaName+"."+name]
	return n, ok
}

// Len returns the number of tables in the graph
func (g *Graph) Len() int {
	return len(g.nodes)
}
