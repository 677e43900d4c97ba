package tree

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/db"
	"github.com/nickyhof/easyext/ext"
	"github.com/nickyhof/easyext/internal/shoptest"
)

func setupShop(t *testing.T) *db.Store {
	t.Helper()

	store := shoptest.New(t)
	items := shoptest.Insert(t, store, "items",
		map[string]any{"name": "Hello", "value": 1.5},
		map[string]any{"name": "Howdy", "value": 2},
	)
	shoptest.Insert(t, store, "orders",
		map[string]any{"item_id": items[0], "quantity": 3},
		map[string]any{"item_id": items[1], "quantity": 2},
	)
	return store
}

func itemTree(opts ...Option) *Tree {
	return MustNew("item", func(b *Builder) {
		b.Node("item",
			Text(ext.Attribute("name")),
			Children(ext.Attribute("orders")),
			Icon(ext.Literal("/icons/item.png")),
			Data("price", ext.Attribute("value")),
		)
		b.Node("order", Text(ext.Attribute("quantity")))
	}, opts...)
}

func request(store *db.Store, node string) *ext.Request {
	return &ext.Request{Params: url.Values{"node": {node}}, Store: store}
}

func texts(nodes []Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.Text != nil {
			out = append(out, *n.Text)
		}
	}
	return out
}

func TestRootAndSecondLevel(t *testing.T) {
	store := setupShop(t)
	tr := itemTree()

	roots, err := tr.Children(request(store, RootNode))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", "Howdy"}, texts(roots))

	var second []Node
	for _, root := range roots {
		assert.False(t, root.Leaf)
		assert.Equal(t, "item", root.ObjectType)

		children, err := tr.Children(request(store, root.ID))
		require.NoError(t, err)
		second = append(second, children...)
	}
	assert.Equal(t, []string{"3", "2"}, texts(second))

	for _, n := range second {
		assert.True(t, n.Leaf)
		assert.Equal(t, "order", n.ObjectType)

		children, err := tr.Children(request(store, n.ID))
		require.NoError(t, err)
		assert.Empty(t, children)
	}
}

func TestNoNodeParam(t *testing.T) {
	nodes, err := itemTree().Children(&ext.Request{Store: setupShop(t)})
	require.NoError(t, err)
	assert.NotNil(t, nodes)
	assert.Empty(t, nodes)
}

func TestNodeFields(t *testing.T) {
	store := setupShop(t)

	roots, err := itemTree(StableIDs()).Children(request(store, RootNode))
	require.NoError(t, err)
	require.Len(t, roots, 2)

	raw, err := json.Marshal(roots[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "1-item-1",
		"object_id": "1",
		"object_type": "item",
		"text": "Hello",
		"icon": "/icons/item.png",
		"price": 1.5
	}`, string(raw))

	assert.Equal(t, 2.0, roots[1].Data["price"])
	assert.Nil(t, roots[0].Qtip)
}

func TestEphemeralIDs(t *testing.T) {
	store := setupShop(t)
	tr := itemTree()

	first, err := tr.Children(request(store, RootNode))
	require.NoError(t, err)
	again, err := tr.Children(request(store, RootNode))
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.NotEqual(t, first[0].ID, first[1].ID)
	assert.NotEqual(t, first[0].ID, again[0].ID)
	assert.Equal(t, first[0].ObjectID, again[0].ObjectID)
	assert.Equal(t, texts(first), texts(again))

	id, err := ParseNodeID(first[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "item", id.TypeKey)
	assert.Equal(t, "1", id.RecordID)
	assert.NotEqual(t, "1", id.Prefix)

	other := itemTree()
	fromOther, err := other.Children(request(store, first[1].ID))
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, texts(fromOther))
}

func TestSameRecordUnderTwoParents(t *testing.T) {
	store := setupShop(t)
	shoptest.Insert(t, store, "orders", map[string]any{"item_id": "1", "quantity": 5})

	tr := MustNew("item", func(b *Builder) {
		b.Node("item", Text(ext.Attribute("name")), Children(ext.Attribute("orders")))
		b.Node("order", Text(ext.Attribute("quantity")), Children(ext.Attribute("item")))
	})

	roots, err := tr.Children(request(store, RootNode))
	require.NoError(t, err)
	orders, err := tr.Children(request(store, roots[0].ID))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	seen := map[string]bool{roots[0].ID: true}
	for _, order := range orders {
		items, err := tr.Children(request(store, order.ID))
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "1", items[0].ObjectID)
		assert.False(t, seen[items[0].ID], "node id %s repeated", items[0].ID)
		seen[items[0].ID] = true
	}
}

func TestFallbackSpec(t *testing.T) {
	store := setupShop(t)
	tr := MustNew("order", nil)

	nodes, err := tr.Children(request(store, RootNode))
	require.NoError(t, err)
	assert.Equal(t, []string{"Order", "Order"}, texts(nodes))
	assert.True(t, nodes[0].Leaf)
}

func TestCustomRoots(t *testing.T) {
	store := setupShop(t)
	tr := itemTree(WithRoots(func(req *ext.Request) (core.Source, error) {
		src, err := req.Store.Lookup("item")
		if err != nil {
			return nil, err
		}
		return src.Filter(core.Where("name", "Howdy")), nil
	}))

	nodes, err := tr.Children(request(store, RootNode))
	require.NoError(t, err)
	assert.Equal(t, []string{"Howdy"}, texts(nodes))

	orders, err := MustNew("shop", nil, WithRootEntity("order")).Children(request(store, RootNode))
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestComputedChildren(t *testing.T) {
	store := setupShop(t)
	tr := MustNew("order", func(b *Builder) {
		b.Node("order",
			Text(ext.Computed(func(req *ext.Request, rec core.Record) (any, error) {
				q, err := rec.Attr("quantity")
				return "x" + ext.Stringify(q), err
			})),
			Children(ext.Attribute("item")),
			Qtip(ext.Method(func(rec core.Record) (any, error) { return rec.Type() + " " + rec.ID(), nil })),
		)
		b.Node("item", Text(ext.Attribute("name")))
	}, StableIDs())

	roots, err := tr.Children(request(store, RootNode))
	require.NoError(t, err)
	assert.Equal(t, []string{"x3", "x2"}, texts(roots))
	assert.Equal(t, "Order 1", *roots[0].Qtip)

	items, err := tr.Children(request(store, "2-order-2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Howdy"}, texts(items))
}

func TestNodeErrors(t *testing.T) {
	store := setupShop(t)
	tr := itemTree()

	for _, node := range []string{"1-item", "1-item-1-extra", "-item-1", "garbage"} {
		_, err := tr.Children(request(store, node))
		assert.ErrorIs(t, err, ext.ErrMalformedNodeID, node)
	}

	_, err := tr.Children(request(store, "1-ghost-1"))
	assert.ErrorIs(t, err, ext.ErrUnknownNodeType)

	_, err = tr.Children(request(store, "9-item-9"))
	assert.ErrorIs(t, err, core.ErrRecordNotFound)
}

func TestConfigErrors(t *testing.T) {
	_, err := New("item", func(b *Builder) { b.Node("item").Node("item") })
	assert.ErrorIs(t, err, ext.ErrConfig)

	_, err = New("item", func(b *Builder) { b.Node("") })
	assert.ErrorIs(t, err, ext.ErrConfig)

	_, err = New("item", func(b *Builder) { b.Node("item", Data("", ext.Literal(1))) })
	assert.ErrorIs(t, err, ext.ErrConfig)

	assert.Equal(t, []string{"item", "order"}, itemTree().NodeTypes())
	assert.Equal(t, "item_tree_data", itemTree().DataAction())
}

func TestNodeIDRoundTrip(t *testing.T) {
	id := NodeID{Prefix: "t4", TypeKey: "line_item", RecordID: "12"}
	parsed, err := ParseNodeID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}
