package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/url"
	"strings"

	"github.com/nickyhof/easyext/db"
	"github.com/nickyhof/easyext/ext"
	"github.com/nickyhof/easyext/grid"
	"github.com/nickyhof/easyext/tree"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderGrid(w io.Writer, g *grid.Grid, data grid.Data) {
	columns := g.Columns()

	headers := make([]string, 0, len(columns)+1)
	headers = append(headers, "id")
	for _, col := range columns {
		headers = append(headers, col.Label)
	}

	t := db.NewTable(w)
	t.Header(headers)
	for _, row := range data.Records {
		line := make([]string, 0, len(headers))
		line = append(line, ext.Stringify(row["id"]))
		for _, col := range columns {
			line = append(line, ext.Stringify(row[col.ID]))
		}
		t.Row(line)
	}
	t.Render()

	fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("%d of %d rows", len(data.Records), data.Total)))
}

// renderTree prints the subtree below node, expanding up to depth levels.
func renderTree(w io.Writer, t *tree.Tree, req *ext.Request, node string, depth int) error {
	return renderLevel(w, t, req, node, "", depth)
}

func renderLevel(w io.Writer, t *tree.Tree, req *ext.Request, node, indent string, depth int) error {
	if depth <= 0 {
		return nil
	}

	params := url.Values(maps.Clone(req.Params))
	if params == nil {
		params = url.Values{}
	}
	params.Set("node", node)
	nodes, err := t.Children(&ext.Request{Context: req.Context, Params: params, Router: req.Router, Store: req.Store})
	if err != nil {
		return err
	}

	for i, n := range nodes {
		branch, next := "├── ", "│   "
		if i == len(nodes)-1 {
			branch, next = "└── ", "    "
		}

		text := n.ObjectType
		if n.Text != nil {
			text = *n.Text
		}
		fmt.Fprintf(w, "%s%s%s %s\n", indent, branch, nodeStyle.Render(text), metaStyle.Render(nodeMeta(n)))

		if !n.Leaf {
			if err := renderLevel(w, t, req, n.ID, indent+next, depth-1); err != nil {
				return err
			}
		}
	}
	return nil
}

func nodeMeta(n tree.Node) string {
	parts := []string{n.ObjectType + " #" + n.ObjectID}
	if n.Qtip != nil {
		parts = append(parts, *n.Qtip)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
