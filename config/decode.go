package config

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/ext"
	"github.com/nickyhof/easyext/grid"
	"github.com/nickyhof/easyext/tree"
)

type gridBlock struct {
	Name      string   `hcl:"name,label"`
	SortTable *string  `hcl:"sort_table,optional"`
	Body      hcl.Body `hcl:",remain"`
}

// gridSchema lists the blocks whose relative order matters.
var gridSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "scope", LabelNames: []string{"entity"}},
		{Type: "delegate", LabelNames: []string{"attribute"}},
		{Type: "column", LabelNames: []string{"attribute"}},
		{Type: "computed"},
	},
}

type delegateBlock struct {
	Except []string `hcl:"except,optional"`
}

type scopeBody struct {
	Filters []*filterBlock `hcl:"filter,block"`
	Orders  []*orderBlock  `hcl:"order,block"`
}

type filterBlock struct {
	Field string         `hcl:"field"`
	Op    *string        `hcl:"op,optional"`
	Value hcl.Expression `hcl:"value"`
}

type orderBlock struct {
	Field string  `hcl:"field"`
	Dir   *string `hcl:"dir,optional"`
}

type treeBlock struct {
	Name      string        `hcl:"name,label"`
	StableIDs *bool         `hcl:"stable_ids,optional"`
	Root      *string       `hcl:"root,optional"`
	Roots     []*rootsBlock `hcl:"roots,block"`
	Nodes     []*nodeBlock  `hcl:"node,block"`
}

type rootsBlock struct {
	Entity  string         `hcl:"entity,label"`
	Filters []*filterBlock `hcl:"filter,block"`
	Orders  []*orderBlock  `hcl:"order,block"`
}

type nodeBlock struct {
	Type     string         `hcl:"type,label"`
	Text     hcl.Expression `hcl:"text,optional"`
	Children hcl.Expression `hcl:"children,optional"`
	Qtip     hcl.Expression `hcl:"qtip,optional"`
	Icon     hcl.Expression `hcl:"icon,optional"`
	Data     hcl.Expression `hcl:"data,optional"`
}

func configError(diags hcl.Diagnostics) error {
	return fmt.Errorf("%w: %w", ext.ErrConfig, diags)
}

func (gb *gridBlock) build() (*grid.Grid, error) {
	content, diags := gb.Body.Content(gridSchema)
	if diags.HasErrors() {
		return nil, configError(diags)
	}

	var (
		opts  []grid.Option
		steps []func(b *grid.Builder)
		seen  = make(map[string]bool)
	)
	for _, block := range content.Blocks {
		if (block.Type == "scope" || block.Type == "delegate") && seen[block.Type] {
			return nil, ext.NewConfigError(fmt.Sprintf("grid %q", gb.Name), block.Type, "declared more than once")
		}
		seen[block.Type] = true

		switch block.Type {
		case "scope":
			var body scopeBody
			if diags := gohcl.DecodeBody(block.Body, nil, &body); diags.HasErrors() {
				return nil, configError(diags)
			}
			src, err := newScope(block.Labels[0], body.Filters, body.Orders)
			if err != nil {
				return nil, err
			}
			opts = append(opts, grid.WithScope(grid.SourceFunc(src)))

		case "delegate":
			var d delegateBlock
			if diags := gohcl.DecodeBody(block.Body, nil, &d); diags.HasErrors() {
				return nil, configError(diags)
			}
			attr := block.Labels[0]
			steps = append(steps, func(b *grid.Builder) { b.DelegateTo(attr, d.Except...) })

		case "column":
			attrs, diags := block.Body.JustAttributes()
			if diags.HasErrors() {
				return nil, configError(diags)
			}
			colOpts, err := columnOptions(attrs)
			if err != nil {
				return nil, err
			}
			attr := block.Labels[0]
			steps = append(steps, func(b *grid.Builder) { b.Column(attr, colOpts...) })

		case "computed":
			attrs, diags := block.Body.JustAttributes()
			if diags.HasErrors() {
				return nil, configError(diags)
			}
			value, ok := attrs["value"]
			if !ok {
				return nil, ext.NewConfigError(fmt.Sprintf("grid %q", gb.Name), "value", "computed column has no value")
			}
			delete(attrs, "value")

			accessor, diags := accessorFor(value.Expr)
			if diags.HasErrors() {
				return nil, configError(diags)
			}
			colOpts, err := columnOptions(attrs)
			if err != nil {
				return nil, err
			}
			fn := ext.ComputedFunc(accessor.Resolve)
			steps = append(steps, func(b *grid.Builder) { b.Computed(fn, colOpts...) })
		}
	}

	if gb.SortTable != nil {
		entity := *gb.SortTable
		steps = append(steps, func(b *grid.Builder) { b.DefaultSortTable(entity) })
	}

	return grid.New(gb.Name, func(b *grid.Builder) {
		for _, step := range steps {
			step(b)
		}
	}, opts...)
}

// columnOptions evaluates constant column attributes.
func columnOptions(attrs hcl.Attributes) ([]grid.ColumnOption, error) {
	raw := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		if len(attr.Expr.Variables()) > 0 {
			return nil, ext.NewConfigError("column", name, "must be a constant")
		}
		v, err := constant(attr.Expr, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ext.ErrConfig, err)
		}
		raw[name] = v
	}
	return grid.ParseColumnOptions(raw)
}

type filter struct {
	field string
	op    core.Operator
	value hcl.Expression
}

// newScope builds a source of entity records narrowed by filters and
// ordered by orders. A filter referencing a param the request lacks is
// skipped.
func newScope(entity string, filterBlocks []*filterBlock, orderBlocks []*orderBlock) (func(*ext.Request) (core.Source, error), error) {
	filters := make([]filter, 0, len(filterBlocks))
	for _, fb := range filterBlocks {
		op := core.EqualsOperator
		if fb.Op != nil {
			var err error
			if op, err = core.ParseOperator(*fb.Op); err != nil {
				return nil, ext.NewConfigError(fmt.Sprintf("scope %q", entity), "op", err.Error())
			}
		}
		for _, t := range fb.Value.Variables() {
			if t.RootName() != paramsVar {
				return nil, ext.NewConfigError(fmt.Sprintf("scope %q", entity), "value", "may only reference params, not "+t.RootName())
			}
		}
		filters = append(filters, filter{field: fb.Field, op: op, value: fb.Value})
	}

	type order struct {
		field string
		dir   core.Direction
	}
	orders := make([]order, 0, len(orderBlocks))
	for _, ob := range orderBlocks {
		dir := core.Ascending
		if ob.Dir != nil {
			dir = core.ParseDirection(*ob.Dir)
		}
		orders = append(orders, order{field: ob.Field, dir: dir})
	}

	return func(req *ext.Request) (core.Source, error) {
		if req == nil || req.Store == nil {
			return nil, errors.New("scope " + entity + ": no record store")
		}
		src, err := req.Store.Lookup(entity)
		if err != nil {
			return nil, err
		}

		for _, f := range filters {
			if missingParams(f.value, req) {
				continue
			}
			v, err := constant(f.value, req)
			if err != nil {
				return nil, fmt.Errorf("scope %s: filter on %s: %w", entity, f.field, err)
			}

			cond := core.Condition{Field: f.field, Operator: f.op}
			if f.op == core.InOperator {
				values, ok := v.([]any)
				if !ok {
					values = []any{v}
				}
				cond.Values = values
			} else {
				cond.Value = v
			}
			src = src.Filter(cond)
		}

		for _, o := range orders {
			src = src.OrderBy(o.field, o.dir)
		}
		return src, nil
	}, nil
}

func (tb *treeBlock) build() (*tree.Tree, error) {
	subject := fmt.Sprintf("tree %q", tb.Name)

	var opts []tree.Option
	if tb.StableIDs != nil && *tb.StableIDs {
		opts = append(opts, tree.StableIDs())
	}
	if tb.Root != nil {
		opts = append(opts, tree.WithRootEntity(*tb.Root))
	}
	switch len(tb.Roots) {
	case 0:
	case 1:
		if tb.Root != nil {
			return nil, ext.NewConfigError(subject, "roots", "conflicts with root")
		}
		rb := tb.Roots[0]
		src, err := newScope(rb.Entity, rb.Filters, rb.Orders)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tree.WithRoots(tree.SourceFunc(src)))
	default:
		return nil, ext.NewConfigError(subject, "roots", "declared more than once")
	}

	nodes := make([][]tree.NodeOption, 0, len(tb.Nodes))
	for _, nb := range tb.Nodes {
		nodeOpts, err := nb.options()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, nodeOpts)
	}

	return tree.New(tb.Name, func(b *tree.Builder) {
		for i, nb := range tb.Nodes {
			b.Node(nb.Type, nodes[i]...)
		}
	}, opts...)
}

func (nb *nodeBlock) options() ([]tree.NodeOption, error) {
	var opts []tree.NodeOption

	fields := []struct {
		expr hcl.Expression
		opt  func(ext.Accessor) tree.NodeOption
	}{
		{nb.Text, tree.Text},
		{nb.Children, tree.Children},
		{nb.Qtip, tree.Qtip},
		{nb.Icon, tree.Icon},
	}
	for _, f := range fields {
		accessor, diags := accessorFor(f.expr)
		if diags.HasErrors() {
			return nil, configError(diags)
		}
		if !accessor.IsZero() {
			opts = append(opts, f.opt(accessor))
		}
	}

	if isAbsent(nb.Data) {
		return opts, nil
	}

	pairs, diags := hcl.ExprMap(nb.Data)
	if diags.HasErrors() {
		return nil, configError(diags)
	}
	for _, pair := range pairs {
		key, err := constant(pair.Key, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ext.ErrConfig, err)
		}
		name, ok := key.(string)
		if !ok {
			return nil, ext.NewConfigError(fmt.Sprintf("node %q", nb.Type), "data", fmt.Sprintf("key %v is not a string", key))
		}

		accessor, diags := accessorFor(pair.Value)
		if diags.HasErrors() {
			return nil, configError(diags)
		}
		opts = append(opts, tree.Data(name, accessor))
	}

	return opts, nil
}
