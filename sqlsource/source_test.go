package sqlsource

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/easyext/core"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		"CREATE TABLE items (id INTEGER PRIMARY KEY, name VARCHAR, value DOUBLE)",
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, item_id INTEGER, quantity INTEGER)",
		"INSERT INTO items VALUES (1, 'Foo', 1.5), (2, 'bar', 2.0), (3, 'Baz', 3.5)",
		"INSERT INTO orders VALUES (1, 1, 3), (2, 1, 7), (3, 2, 1)",
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	store := New(db)
	store.Associate("items", core.Association{Name: "orders", Kind: core.HasMany, Table: "orders", ForeignKey: "item_id"})
	store.Associate("orders", core.Association{Name: "item", Kind: core.BelongsTo, Table: "items", ForeignKey: "item_id"})
	return store
}

func ids(t *testing.T, src core.Source) []string {
	t.Helper()
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)

	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.ID())
	}
	return out
}

func TestLookup(t *testing.T) {
	store := setupStore(t)

	_, err := store.Lookup("item")
	require.NoError(t, err)

	_, err = store.Lookup("customer")
	assert.ErrorIs(t, err, core.ErrUnknownEntity)
}

func TestSelectSQL(t *testing.T) {
	store := setupStore(t)
	src, err := store.Query("items")
	require.NoError(t, err)

	shaped := src.Filter(core.Condition{Field: "value", Operator: core.GreaterThanOperator, Value: 1}).
		OrderBy("items.name", core.Ascending).Offset(2).Limit(5)

	query, args, err := shaped.(*Query).SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM items WHERE value > ? ORDER BY items.name ASC, id ASC LIMIT 5 OFFSET 2", query)
	assert.Equal(t, []any{1}, args)
}

func TestRejectsInvalidIdentifiers(t *testing.T) {
	store := setupStore(t)
	src, _ := store.Lookup("item")

	_, err := src.OrderBy("name; DROP TABLE items", core.Ascending).Fetch(context.Background())
	assert.Error(t, err)

	_, err = src.Filter(core.Where("1=1 OR name", "x")).Count(context.Background())
	assert.Error(t, err)
}

func TestPagingSortingAndCount(t *testing.T) {
	store := setupStore(t)
	src, _ := store.Lookup("item")
	ctx := context.Background()

	assert.Equal(t, []string{"2", "1", "3"}, ids(t, src.OrderBy("name", core.Descending)))
	assert.Equal(t, []string{"2", "3"}, ids(t, src.Offset(1).Limit(2)))

	total, err := src.Offset(1).Limit(1).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestConditions(t *testing.T) {
	store := setupStore(t)
	src, _ := store.Lookup("item")

	assert.Equal(t, []string{"2", "3"}, ids(t, src.Filter(core.Condition{Field: "name", Operator: core.LikeOperator, Value: "b%"})))
	assert.Equal(t, []string{"1", "3"}, ids(t, src.Filter(core.Condition{Field: "id", Operator: core.InOperator, Values: []any{1, 3}})))
	assert.Empty(t, ids(t, src.Filter(core.Condition{Field: "id", Operator: core.InOperator})))
}

func TestFetchByID(t *testing.T) {
	store := setupStore(t)
	src, _ := store.Lookup("item")
	ctx := context.Background()

	rec, err := src.FetchByID(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Item", rec.Type())

	name, err := rec.Attr("name")
	require.NoError(t, err)
	assert.Equal(t, "bar", name)

	_, err = src.Filter(core.Where("name", "Foo")).FetchByID(ctx, "2")
	assert.ErrorIs(t, err, core.ErrRecordNotFound)
}

func TestAssociations(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	items, _ := store.Lookup("item")
	item, err := items.FetchByID(ctx, "1")
	require.NoError(t, err)

	children, err := item.Attr("orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(t, children.(core.Source)))

	orders, _ := store.Lookup("order")
	order, err := orders.FetchByID(ctx, "3")
	require.NoError(t, err)

	parent, err := order.Attr("item")
	require.NoError(t, err)
	assert.Equal(t, "2", parent.(core.Record).ID())

	_, err = order.Attr("customer")
	assert.ErrorIs(t, err, core.ErrUnknownAttribute)
}
