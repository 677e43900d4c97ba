// Package easyext serves data for grid and tree widgets from a Git-backed
// record store.
//
// Grids and trees are declared once, in Go or in HCL files, and answer the
// widget's requests: a grid returns its column layout and pages of sorted
// rows, a tree returns the children of one node at a time. Records live in
// a Git repository where every write is a commit, or in any database
// reachable through database/sql.
//
// # Quick Start
//
//	persistence, _ := ps.NewMemoryPersistence()
//	store, _ := easyext.Open(persistence).Store("shop", core.Identity{Name: "App", Email: "app@example.com"})
//
//	store.CreateTable(core.Table{
//		Name:    "items",
//		Columns: []core.Column{{Name: "name", Type: core.StringType}},
//	})
//	store.Insert("items", map[string]any{"name": "Hello"})
//
//	items := grid.MustNew("items", func(b *grid.Builder) {
//		b.Column("name", grid.Label("Item"))
//	})
//
//	mux := web.NewMux(store, slog.Default())
//	mux.Controller("item").Grid(items)
//	ln, _ := net.Listen("tcp", ":3000")
//	mux.Listener(ln)
//
// # Endpoints
//
//   - GET /{controller}/{grid}_grid_metadata: column layout and data URL
//   - GET /{controller}/{grid}_grid_data: {total, records}, honouring the
//     sort, dir, start and limit params
//   - GET /{controller}/{tree}_tree_data: child nodes of the node param
package easyext
