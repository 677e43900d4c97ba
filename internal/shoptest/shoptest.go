// Package shoptest builds the items and orders store used by grid, tree
// and web tests.
package shoptest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/db"
	"github.com/nickyhof/easyext/ps"
)

var Identity = core.Identity{Name: "test", Email: "test@test.com"}

var ItemsTable = core.Table{
	Name: "items",
	Columns: []core.Column{
		{Name: "id", Type: core.IntType, PrimaryKey: true},
		{Name: "name", Type: core.StringType},
		{Name: "description", Type: core.TextType},
		{Name: "value", Type: core.FloatType},
		{Name: "created_at", Type: core.TimestampType},
	},
	Associations: []core.Association{
		{Name: "orders", Kind: core.HasMany, Table: "orders", ForeignKey: "item_id"},
	},
}

var OrdersTable = core.Table{
	Name: "orders",
	Columns: []core.Column{
		{Name: "id", Type: core.IntType, PrimaryKey: true},
		{Name: "item_id", Type: core.IntType},
		{Name: "quantity", Type: core.IntType},
		{Name: "created_at", Type: core.TimestampType},
	},
	Associations: []core.Association{
		{Name: "item", Kind: core.BelongsTo, Table: "items", ForeignKey: "item_id"},
	},
}

// New returns an empty in-memory store with the items and orders tables.
func New(t testing.TB) *db.Store {
	t.Helper()

	p, err := ps.NewMemoryPersistence()
	require.NoError(t, err)

	store, err := db.NewStore(p, "shop", Identity)
	require.NoError(t, err)

	_, err = store.CreateTable(ItemsTable)
	require.NoError(t, err)
	_, err = store.CreateTable(OrdersTable)
	require.NoError(t, err)

	return store
}

// Items inserts one item per name and returns their ids.
func Items(t testing.TB, store *db.Store, names ...string) []string {
	t.Helper()

	rows := make([]map[string]any, 0, len(names))
	for _, name := range names {
		rows = append(rows, map[string]any{"name": name})
	}
	return insert(t, store, "items", rows)
}

// Insert inserts rows into table and returns their ids.
func Insert(t testing.TB, store *db.Store, table string, rows ...map[string]any) []string {
	t.Helper()
	return insert(t, store, table, rows)
}

func insert(t testing.TB, store *db.Store, table string, rows []map[string]any) []string {
	keys, _, err := store.InsertAll(table, rows)
	require.NoError(t, err)
	return keys
}
