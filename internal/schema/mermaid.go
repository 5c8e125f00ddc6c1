// Package schema synthesizes whole-database artifacts from dialect adapter
// output. The synthesizer never looks at which backend produced the
// descriptors.
package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yourbasic/graph"

	"github.com/sqlgate/sqlgate/internal/registry"
)

// edge is one directed foreign-key relationship between tables.
type edge struct {
	owning     string
	referenced string
}

// Mermaid renders a Mermaid ER diagram for every table of one connection.
// Each table becomes an entity node; foreign keys become relationship
// lines, deduplicated by (owning, referenced) table pair so two FK columns
// pointing at the same table yield a single line.
func Mermaid(ctx context.Context, entry *registry.Entry) (string, error) {
	names, err := entry.Adapter.TableNames(ctx, entry.DB)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "erDiagram\n    %% No tables found", nil
	}

	var b strings.Builder
	b.WriteString("erDiagram\n")

	seen := make(map[edge]bool)
	var edges []edge
	for _, table := range names {
		columns, err := entry.Adapter.DescribeTable(ctx, entry.DB, table)
		if err != nil {
			return "", err
		}

		fmt.Fprintf(&b, "    %s {\n", table)
		for _, col := range columns {
			var suffix string
			if col.PrimaryKey {
				suffix += " PK"
			}
			if col.ForeignKey != nil {
				suffix += " FK"
			}
			// Mermaid type names cannot contain spaces.
			typeName := strings.ReplaceAll(strings.ToUpper(col.Type), " ", "_")
			if typeName == "" {
				typeName = "UNKNOWN"
			}
			fmt.Fprintf(&b, "        %s %s%s\n", typeName, col.Name, suffix)

			if col.ForeignKey != nil {
				e := edge{owning: table, referenced: col.ForeignKey.Table}
				if !seen[e] {
					seen[e] = true
					edges = append(edges, e)
				}
			}
		}
		b.WriteString("    }\n")
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].referenced != edges[j].referenced {
			return edges[i].referenced < edges[j].referenced
		}
		return edges[i].owning < edges[j].owning
	})
	for _, e := range edges {
		fmt.Fprintf(&b, "    %s ||--o{ %s : \"\"\n", e.referenced, e.owning)
	}

	if hasCycle(names, edges) {
		b.WriteString("    %% circular foreign-key chain detected\n")
	}

	return b.String(), nil
}

// hasCycle builds a digraph over the table set and checks the FK edges for
// cycles, self-references included. Edges to tables outside the listed set
// still render as relationship lines but cannot participate here.
func hasCycle(names []string, edges []edge) bool {
	if len(edges) == 0 {
		return false
	}
	idx := make(map[string]int, len(names))
	for i, name := range names {
		idx[name] = i
	}

	g := graph.New(len(names))
	for _, e := range edges {
		from, ok := idx[e.owning]
		if !ok {
			continue
		}
		to, ok := idx[e.referenced]
		if !ok {
			continue
		}
		g.Add(from, to)
	}
	return !graph.Acyclic(g)
}
