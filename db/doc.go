// Package db provides the record store behind grids and trees.
//
// A Store serves one database of a git-backed repository. Tables are
// declared with core.Table, records are written in single commits and read
// back through Query, which implements core.Source.
//
// # Store Usage
//
//	store, err := db.NewStore(persistence, "shop", identity)
//	store.CreateTable(core.Table{
//	    Name: "items",
//	    Columns: []core.Column{
//	        {Name: "id", Type: core.IntType, PrimaryKey: true},
//	        {Name: "name", Type: core.StringType},
//	    },
//	})
//	id, _, err := store.Insert("items", map[string]any{"name": "Foo"})
//
//	src, _ := store.Lookup("item")
//	records, err := src.OrderBy("items.name", core.Ascending).Limit(10).Fetch(ctx)
//
// # Import and Export
//
// ImportJSONL and ExportJSONL move records between a table and a JSON
// lines file at a local path, file://, http(s):// (import only) or s3://
// location.
package db
