package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/db"
	"github.com/nickyhof/easyext/ext"
	"github.com/nickyhof/easyext/grid"
	"github.com/nickyhof/easyext/tree"
)

func newTableCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Manage tables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create FILE",
		Short: "Create a table from a JSON schema file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var table core.Table
			if err := json.Unmarshal(data, &table); err != nil {
				return fmt.Errorf("invalid schema %s: %w", args[0], err)
			}

			store, err := g.openStore()
			if err != nil {
				return err
			}
			txn, err := store.CreateTable(table)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Created table %s (%s)", table.Name, shortID(txn.Id))))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.openStore()
			if err != nil {
				return err
			}

			t := db.NewTable(cmd.OutOrStdout())
			t.Header([]string{"Table", "Columns", "Associations"})
			for _, name := range store.Tables() {
				table, err := store.Table(name)
				if err != nil {
					return err
				}
				columns := make([]string, 0, len(table.Columns))
				for _, col := range table.Columns {
					columns = append(columns, col.Name)
				}
				assocs := make([]string, 0, len(table.Associations))
				for _, a := range table.Associations {
					assocs = append(assocs, a.Name)
				}
				t.Row([]string{name, strings.Join(columns, ", "), strings.Join(assocs, ", ")})
			}
			t.Render()
			return nil
		},
	})

	return cmd
}

func s3Flags(cmd *cobra.Command) *db.S3Options {
	opts := &db.S3Options{}
	cmd.Flags().StringVar(&opts.AccessKey, "s3AccessKey", "", "S3 access key (default credential chain if empty)")
	cmd.Flags().StringVar(&opts.SecretKey, "s3SecretKey", "", "S3 secret key")
	cmd.Flags().StringVar(&opts.Region, "s3Region", "", "S3 region")
	cmd.Flags().StringVar(&opts.Endpoint, "s3Endpoint", "", "S3 endpoint for compatible stores")
	return opts
}

func newImportCmd(g *globals) *cobra.Command {
	var opts *db.S3Options

	cmd := &cobra.Command{
		Use:   "import TABLE PATH",
		Short: "Import JSON lines from a file, an http(s) URL or s3://bucket/key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.openStore()
			if err != nil {
				return err
			}
			result, err := store.ImportJSONL(cmd.Context(), args[0], args[1], opts)
			if err != nil {
				return err
			}
			result.Display(cmd.OutOrStdout())
			return nil
		},
	}
	opts = s3Flags(cmd)
	return cmd
}

func newExportCmd(g *globals) *cobra.Command {
	var opts *db.S3Options

	cmd := &cobra.Command{
		Use:   "export TABLE PATH",
		Short: "Export a table as JSON lines to a file or s3://bucket/key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.openStore()
			if err != nil {
				return err
			}
			src, err := store.Query(args[0])
			if err != nil {
				return err
			}
			n, err := db.ExportJSONL(cmd.Context(), src, args[1], opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Exported %d records to %s", n, args[1])))
			return nil
		},
	}
	opts = s3Flags(cmd)
	return cmd
}

// parseParams turns repeated key=value flags into request params.
func parseParams(pairs []string) (url.Values, error) {
	params := url.Values{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param %q, expected key=value", pair)
		}
		params.Add(key, value)
	}
	return params, nil
}

func newGridCmd(g *globals) *cobra.Command {
	var (
		params   []string
		asJSON   bool
		metadata bool
	)

	cmd := &cobra.Command{
		Use:   "grid CONTROLLER GRID",
		Short: "Render a page of a declared grid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := g.loadConfig(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			gr := findGrid(ctrl.Grids, args[1])
			if gr == nil {
				return fmt.Errorf("grid %q is not declared on controller %q", args[1], args[0])
			}

			req, err := g.request(cmd, args[0], params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if metadata {
				return writeJSON(out, gr.Metadata(req, req.Param("id")))
			}

			data, err := gr.Rows(req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, data)
			}

			renderGrid(out, gr, data)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Request param as key=value (sort, dir, start, limit, ...)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the data payload as JSON")
	cmd.Flags().BoolVar(&metadata, "metadata", false, "Print the metadata payload instead of rows")
	return cmd
}

func newTreeCmd(g *globals) *cobra.Command {
	var (
		params []string
		node   string
		depth  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "tree CONTROLLER TREE",
		Short: "Render a declared tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := g.loadConfig(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tr := findTree(ctrl.Trees, args[1])
			if tr == nil {
				return fmt.Errorf("tree %q is not declared on controller %q", args[1], args[0])
			}

			req, err := g.request(cmd, args[0], params)
			if err != nil {
				return err
			}

			if asJSON {
				req.Params.Set("node", node)
				nodes, err := tr.Children(req)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), nodes)
			}

			return renderTree(cmd.OutOrStdout(), tr, req, node, depth)
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Request param as key=value")
	cmd.Flags().StringVar(&node, "node", tree.RootNode, "Node to expand")
	cmd.Flags().IntVar(&depth, "depth", 3, "Levels to expand")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the children of the node as JSON")
	return cmd
}

func (g *globals) request(cmd *cobra.Command, controller string, pairs []string) (*ext.Request, error) {
	params, err := parseParams(pairs)
	if err != nil {
		return nil, err
	}
	store, err := g.openStore()
	if err != nil {
		return nil, err
	}

	return &ext.Request{
		Context: cmd.Context(),
		Params:  params,
		Router: ext.RouterFunc(func(action, id string) string {
			u := "/" + controller + "/" + action
			if id != "" {
				u += "/" + id
			}
			return u
		}),
		Store: store,
	}, nil
}

func findGrid(grids []*grid.Grid, name string) *grid.Grid {
	for _, g := range grids {
		if g.Name() == name {
			return g
		}
	}
	return nil
}

func findTree(trees []*tree.Tree, name string) *tree.Tree {
	for _, t := range trees {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
