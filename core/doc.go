// Package core provides core types used throughout easyext.
//
// The package defines the storage schema types (Identity, Database, Table,
// Column, Association), the record capability consumed by the grid and tree
// engines (Record, Source, Store, Condition) and naming helpers shared by
// both.
//
// # Identity
//
// Identity identifies the author of store commits:
//
//	identity := core.Identity{
//	    Name:  "John Doe",
//	    Email: "john@example.com",
//	}
//
// # Table Definition
//
//	table := core.Table{
//	    Database: "shop",
//	    Name:     "orders",
//	    Columns: []core.Column{
//	        {Name: "id", Type: core.IntType, PrimaryKey: true},
//	        {Name: "item_id", Type: core.IntType},
//	        {Name: "quantity", Type: core.IntType},
//	    },
//	    Associations: []core.Association{
//	        {Name: "item", Kind: core.BelongsTo, Table: "items", ForeignKey: "item_id"},
//	    },
//	}
//
// # Sources
//
// A Source is shaped lazily and evaluated by Count, Fetch or FetchByID:
//
//	src, _ := store.Lookup("order")
//	src = src.Filter(core.Where("item_id", 1)).OrderBy("quantity", core.Ascending).Limit(10)
//	total, _ := src.Count(ctx) // ignores the limit
//	records, _ := src.Fetch(ctx)
//
// # Naming
//
// Entity names are underscored singulars ("line_item"), tables are their
// plurals ("line_items") and record types are camel-cased singulars
// ("LineItem").
package core
