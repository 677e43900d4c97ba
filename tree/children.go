package tree

import (
	"errors"
	"fmt"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/ext"
)

// Children answers a tree data request for the "node" param. An absent
// param yields no nodes.
func (t *Tree) Children(req *ext.Request) ([]Node, error) {
	if !req.HasParam("node") {
		return []Node{}, nil
	}

	node := req.Param("node")
	if node == RootNode {
		return t.rootNodes(req)
	}

	id, err := ParseNodeID(node)
	if err != nil {
		return nil, err
	}

	spec, ok := t.specs[id.TypeKey]
	if !ok {
		return nil, &ext.UnknownNodeTypeError{Tree: t.name, TypeKey: id.TypeKey}
	}
	if spec.children.IsZero() {
		return []Node{}, nil
	}

	src, err := t.lookup(req, id.TypeKey)
	if err != nil {
		return nil, err
	}
	rec, err := src.FetchByID(req.Ctx(), id.RecordID)
	if err != nil {
		return nil, fmt.Errorf("tree %s: node %s: %w", t.name, node, err)
	}

	records, err := t.childRecords(req, spec, rec)
	if err != nil {
		return nil, err
	}

	t.logDebug(req, "expanded tree node", "node", node, "children", len(records))
	return t.materializeAll(req, records)
}

func (t *Tree) rootNodes(req *ext.Request) ([]Node, error) {
	var (
		src core.Source
		err error
	)
	if t.roots != nil {
		src, err = t.roots(req)
	} else {
		src, err = t.lookup(req, t.rootEntity)
	}
	if err != nil {
		return nil, err
	}

	records, err := src.Fetch(req.Ctx())
	if err != nil {
		return nil, fmt.Errorf("tree %s: roots: %w", t.name, err)
	}

	t.logDebug(req, "listed tree roots", "roots", len(records))
	return t.materializeAll(req, records)
}

func (t *Tree) lookup(req *ext.Request, entity string) (core.Source, error) {
	if req == nil || req.Store == nil {
		return nil, errors.New("tree " + t.name + ": no record store")
	}
	return req.Store.Lookup(entity)
}

func (t *Tree) childRecords(req *ext.Request, spec *nodeSpec, rec core.Record) ([]core.Record, error) {
	v, err := spec.children.Resolve(req, rec)
	if err != nil {
		return nil, fmt.Errorf("tree %s: children of %s %s: %w", t.name, spec.typeKey, rec.ID(), err)
	}

	switch children := v.(type) {
	case nil:
		return nil, nil
	case core.Source:
		return children.Fetch(req.Ctx())
	case []core.Record:
		return children, nil
	case core.Record:
		return []core.Record{children}, nil
	default:
		return nil, fmt.Errorf("tree %s: children of %s %s: unsupported %T", t.name, spec.typeKey, rec.ID(), v)
	}
}

func (t *Tree) materializeAll(req *ext.Request, records []core.Record) ([]Node, error) {
	nodes := make([]Node, 0, len(records))
	for _, rec := range records {
		n, err := t.materialize(req, rec)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// materialize renders rec with the node declared for its type. Undeclared
// types render with their type name as text.
func (t *Tree) materialize(req *ext.Request, rec core.Record) (Node, error) {
	typeKey := core.Underscore(rec.Type())
	spec, ok := t.specs[typeKey]
	if !ok {
		spec = &nodeSpec{typeKey: typeKey, text: ext.Literal(rec.Type())}
	}

	n := Node{
		ID:         NodeID{Prefix: t.prefix(rec.ID()), TypeKey: typeKey, RecordID: rec.ID()}.String(),
		ObjectID:   rec.ID(),
		ObjectType: typeKey,
		Leaf:       spec.children.IsZero(),
	}

	fields := []struct {
		accessor ext.Accessor
		dst      **string
	}{
		{spec.qtip, &n.Qtip},
		{spec.text, &n.Text},
		{spec.icon, &n.Icon},
	}
	for _, f := range fields {
		if f.accessor.IsZero() {
			continue
		}
		v, err := f.accessor.Resolve(req, rec)
		if err != nil {
			return Node{}, fmt.Errorf("tree %s: %s %s: %w", t.name, typeKey, rec.ID(), err)
		}
		s := ext.Stringify(v)
		*f.dst = &s
	}

	if len(spec.data) > 0 {
		n.Data = make(map[string]any, len(spec.data))
		for _, entry := range spec.data {
			v, err := entry.accessor.Resolve(req, rec)
			if err != nil {
				return Node{}, fmt.Errorf("tree %s: %s %s: data %s: %w", t.name, typeKey, rec.ID(), entry.key, err)
			}
			n.Data[entry.key] = v
		}
	}

	return n, nil
}
