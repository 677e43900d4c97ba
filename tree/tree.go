// Package tree renders records as lazily expanded nodes of a tree widget.
//
// The widget asks for the children of one node at a time. The "root" node
// lists the root records; any other node id names the record whose
// children are wanted, encoded as "<prefix>-<type>-<record id>".
package tree

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/ctxlog"
	"github.com/nickyhof/easyext/ext"
)

// RootNode is the node param asking for the root records.
const RootNode = "root"

// SourceFunc produces the root records of a tree for one request.
type SourceFunc func(req *ext.Request) (core.Source, error)

type nodeSpec struct {
	typeKey  string
	text     ext.Accessor
	children ext.Accessor
	qtip     ext.Accessor
	icon     ext.Accessor
	data     []dataEntry
}

type dataEntry struct {
	key      string
	accessor ext.Accessor
}

// Tree is a tree declaration. It is safe for concurrent use.
type Tree struct {
	name       string
	roots      SourceFunc
	rootEntity string
	stableIDs  bool
	specs      map[string]*nodeSpec
	types      []string
	nextToken  atomic.Uint64
}

type Option func(*Tree)

// WithRoots replaces the default root records, all records of the entity
// named after the tree.
func WithRoots(fn SourceFunc) Option {
	return func(t *Tree) {
		t.roots = fn
	}
}

// WithRootEntity lists all records of entity as roots.
func WithRootEntity(entity string) Option {
	return func(t *Tree) {
		t.rootEntity = entity
	}
}

// StableIDs prefixes node ids with the record id instead of a token
// assigned by the tree, so ids survive a restart.
func StableIDs() Option {
	return func(t *Tree) {
		t.stableIDs = true
	}
}

// New declares a tree. configure receives a Builder that declares one
// node spec per record type.
func New(name string, configure func(*Builder), opts ...Option) (*Tree, error) {
	t := &Tree{
		name:       name,
		rootEntity: core.Singular(name),
		specs:      make(map[string]*nodeSpec),
	}
	for _, opt := range opts {
		opt(t)
	}

	b := &Builder{tree: t, subject: fmt.Sprintf("tree %q", name)}
	if configure != nil {
		configure(b)
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}

	return t, nil
}

// MustNew is like New but panics on a declaration error.
func MustNew(name string, configure func(*Builder), opts ...Option) *Tree {
	t, err := New(name, configure, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tree) Name() string {
	return t.name
}

// DataAction names the endpoint serving the tree.
func (t *Tree) DataAction() string {
	return t.name + "_tree_data"
}

// NodeTypes returns the declared type keys in declaration order.
func (t *Tree) NodeTypes() []string {
	return append([]string(nil), t.types...)
}

// prefix returns the id prefix of a node showing the record id. Without
// stable ids every node gets a fresh token, so a record shown in two
// places still yields two distinct node ids.
func (t *Tree) prefix(id string) string {
	if t.stableIDs {
		return id
	}
	return "t" + strconv.FormatUint(t.nextToken.Add(1), 10)
}

func (t *Tree) logDebug(req *ext.Request, msg string, args ...any) {
	ctxlog.FromContext(req.Ctx()).Debug(msg, append([]any{"tree", t.name}, args...)...)
}
