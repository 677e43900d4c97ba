package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	testCases := []struct {
		name   string
		fn     func(string) string
		input  string
		expect string
	}{
		{"table from entity", TableName, "item", "items"},
		{"table from camel entity", TableName, "LineItem", "line_items"},
		{"table from plural", TableName, "orders", "orders"},
		{"entity type", EntityType, "line_items", "LineItem"},
		{"underscore", Underscore, "LineItem", "line_item"},
		{"humanize simple", Humanize, "name", "Name"},
		{"humanize foreign key", Humanize, "item_id", "Item"},
		{"humanize words", Humanize, "created_at", "Created at"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, tc.fn(tc.input))
		})
	}
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, Ascending, ParseDirection("ASC"))
	assert.Equal(t, Descending, ParseDirection("DESC"))
	assert.Equal(t, Descending, ParseDirection(""))
	assert.Equal(t, Descending, ParseDirection("asc"))
}

func TestParseOperator(t *testing.T) {
	op, err := ParseOperator("like")
	require.NoError(t, err)
	assert.Equal(t, LikeOperator, op)

	op, err = ParseOperator("<>")
	require.NoError(t, err)
	assert.Equal(t, NotEqualsOperator, op)

	op, err = ParseOperator(">=")
	require.NoError(t, err)
	assert.Equal(t, GreaterThanOrEqualOperator, op)

	_, err = ParseOperator("~")
	assert.Error(t, err)
}

func TestTableLookups(t *testing.T) {
	table := Table{
		Name: "orders",
		Columns: []Column{
			{Name: "order_no", Type: IntType, PrimaryKey: true},
			{Name: "item_id", Type: IntType},
		},
		Associations: []Association{
			{Name: "item", Kind: BelongsTo, Table: "items", ForeignKey: "item_id"},
		},
	}

	assert.Equal(t, "order_no", table.PrimaryKey())
	assert.Equal(t, "id", Table{}.PrimaryKey())

	col, ok := table.Column("item_id")
	require.True(t, ok)
	assert.Equal(t, IntType, col.Type)

	_, ok = table.Association("orders")
	assert.False(t, ok)
	a, ok := table.Association("item")
	require.True(t, ok)
	assert.Equal(t, "items", a.Table)
}
