package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/ext"
)

// paramsVar is the variable exposing request params to expressions.
const paramsVar = "params"

// isAbsent reports whether an optional attribute was left out. gohcl fills
// missing hcl.Expression fields with a static null.
func isAbsent(expr hcl.Expression) bool {
	if expr == nil {
		return true
	}
	if len(expr.Variables()) > 0 {
		return false
	}
	v, diags := expr.Value(nil)
	return !diags.HasErrors() && v.IsNull()
}

// accessorFor turns an expression into an accessor. A bare name reads that
// attribute, a constant is a literal, and anything else is evaluated per
// record with its referenced attributes and params in scope.
func accessorFor(expr hcl.Expression) (ext.Accessor, hcl.Diagnostics) {
	if isAbsent(expr) {
		return ext.Accessor{}, nil
	}

	if traversal, diags := hcl.AbsTraversalForExpr(expr); !diags.HasErrors() && len(traversal) == 1 {
		if root := traversal.RootName(); root != paramsVar {
			return ext.Attribute(root), nil
		}
	}

	if len(expr.Variables()) == 0 {
		v, diags := expr.Value(nil)
		if diags.HasErrors() {
			return ext.Accessor{}, diags
		}
		value, err := ctyToGo(v)
		if err != nil {
			return ext.Accessor{}, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Unsupported value",
				Detail:   err.Error(),
				Subject:  expr.Range().Ptr(),
			}}
		}
		return ext.Literal(value), nil
	}

	return ext.Computed(func(req *ext.Request, rec core.Record) (any, error) {
		ctx, err := recordContext(req, rec, expr.Variables())
		if err != nil {
			return nil, err
		}
		v, diags := expr.Value(ctx)
		if diags.HasErrors() {
			return nil, diags
		}
		return ctyToGo(v)
	}), nil
}

// recordContext exposes the attributes an expression references. A
// reference through an associated record, such as item.name, loads that
// attribute of the associated record.
func recordContext(req *ext.Request, rec core.Record, traversals []hcl.Traversal) (*hcl.EvalContext, error) {
	nested := make(map[string]map[string]bool)
	for _, t := range traversals {
		root := t.RootName()
		if _, ok := nested[root]; !ok {
			nested[root] = make(map[string]bool)
		}
		if len(t) > 1 {
			if step, ok := t[1].(hcl.TraverseAttr); ok {
				nested[root][step.Name] = true
			}
		}
	}

	vars := make(map[string]cty.Value, len(nested))
	for root, attrs := range nested {
		if root == paramsVar {
			vars[root] = paramsValue(req)
			continue
		}
		if rec == nil {
			vars[root] = cty.NullVal(cty.DynamicPseudoType)
			continue
		}

		v, err := rec.Attr(root)
		if err != nil {
			return nil, err
		}

		val, err := attrValue(v, attrs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", root, err)
		}
		vars[root] = val
	}

	return &hcl.EvalContext{Variables: vars}, nil
}

func attrValue(v any, nested map[string]bool) (cty.Value, error) {
	switch value := v.(type) {
	case core.Record:
		attrs := make(map[string]cty.Value, len(nested))
		for name := range nested {
			inner, err := value.Attr(name)
			if err != nil {
				return cty.NilVal, err
			}
			if attrs[name], err = goToCty(inner); err != nil {
				return cty.NilVal, err
			}
		}
		return cty.ObjectVal(attrs), nil
	case core.Source:
		return cty.NilVal, fmt.Errorf("record collections cannot be used in expressions")
	default:
		return goToCty(v)
	}
}

func paramsValue(req *ext.Request) cty.Value {
	if req == nil || len(req.Params) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(req.Params))
	for name := range req.Params {
		attrs[name] = cty.StringVal(req.Params.Get(name))
	}
	return cty.ObjectVal(attrs)
}

func goToCty(v any) (cty.Value, error) {
	switch value := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(value), nil
	case bool:
		return cty.BoolVal(value), nil
	case int:
		return cty.NumberIntVal(int64(value)), nil
	case int64:
		return cty.NumberIntVal(value), nil
	case float64:
		return cty.NumberFloatVal(value), nil
	case time.Time:
		return cty.StringVal(value.Format(time.RFC3339)), nil
	case core.Record:
		return cty.StringVal(value.ID()), nil
	}

	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.StringVal(ext.Stringify(v)), nil
	}
	return gocty.ToCtyValue(v, ty)
}

func ctyToGo(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		return v.True(), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if n, acc := bf.Int64(); acc == big.Exact {
				return n, nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, err
		}
		return f, nil
	}

	raw, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// constant evaluates an expression that may only reference params.
func constant(expr hcl.Expression, req *ext.Request) (any, error) {
	var ctx *hcl.EvalContext
	if len(expr.Variables()) > 0 {
		ctx = &hcl.EvalContext{Variables: map[string]cty.Value{paramsVar: paramsValue(req)}}
	}
	v, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return nil, diags
	}
	return ctyToGo(v)
}

// missingParams reports whether expr references a param the request does
// not carry.
func missingParams(expr hcl.Expression, req *ext.Request) bool {
	for _, t := range expr.Variables() {
		if t.RootName() != paramsVar || len(t) < 2 {
			continue
		}
		step, ok := t[1].(hcl.TraverseAttr)
		if ok && !req.HasParam(step.Name) {
			return true
		}
	}
	return false
}
