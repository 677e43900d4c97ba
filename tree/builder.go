package tree

import (
	"github.com/nickyhof/easyext/ext"
)

// Builder declares node specs.
type Builder struct {
	tree    *Tree
	subject string
	errs    []error
}

type NodeOption func(*nodeSpec)

// Text sets the node label. Without it the node has no text.
func Text(a ext.Accessor) NodeOption {
	return func(s *nodeSpec) { s.text = a }
}

// Children resolves the child records of a node. The accessor may yield
// nil, a core.Record, a []core.Record or a core.Source. Nodes without it
// are leaves.
func Children(a ext.Accessor) NodeOption {
	return func(s *nodeSpec) { s.children = a }
}

func Qtip(a ext.Accessor) NodeOption {
	return func(s *nodeSpec) { s.qtip = a }
}

func Icon(a ext.Accessor) NodeOption {
	return func(s *nodeSpec) { s.icon = a }
}

// Data adds an extra node field. Its value is passed through unformatted.
func Data(key string, a ext.Accessor) NodeOption {
	return func(s *nodeSpec) {
		s.data = append(s.data, dataEntry{key: key, accessor: a})
	}
}

// Node declares how records of typeKey, the underscored type name such as
// "line_item", are rendered.
func (b *Builder) Node(typeKey string, opts ...NodeOption) *Builder {
	if typeKey == "" {
		b.errs = append(b.errs, ext.NewConfigError(b.subject, "node", "node type is empty"))
		return b
	}
	if _, ok := b.tree.specs[typeKey]; ok {
		b.errs = append(b.errs, ext.NewConfigError(b.subject, "node", "duplicate node type "+typeKey))
		return b
	}

	spec := &nodeSpec{typeKey: typeKey}
	for _, opt := range opts {
		opt(spec)
	}
	for _, entry := range spec.data {
		if entry.key == "" {
			b.errs = append(b.errs, ext.NewConfigError(b.subject, "data", "node "+typeKey+" has a data entry without a key"))
			return b
		}
	}

	b.tree.specs[typeKey] = spec
	b.tree.types = append(b.tree.types, typeKey)
	return b
}
