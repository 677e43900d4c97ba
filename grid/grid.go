// Package grid renders records for a tabular widget: layout metadata
// describing the columns, and pages of sorted, projected rows.
package grid

import (
	"errors"
	"fmt"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/ctxlog"
	"github.com/nickyhof/easyext/ext"
)

const defaultWidth = 100

// SourceFunc produces the records of a grid for one request.
type SourceFunc func(req *ext.Request) (core.Source, error)

// Column is one configured grid column.
type Column struct {
	ID       string
	Accessor ext.Accessor
	Label    string
	SortKey  string
	Sortable bool
	Width    int
	Exclude  bool
}

// Grid is an immutable grid declaration. It is safe for concurrent use.
type Grid struct {
	name           string
	source         SourceFunc
	columns        []Column
	delegate       string
	delegateExcept map[string]bool
	rowID          func(core.Record) string
	sortPrefix     string
}

type Option func(*Grid)

// WithScope replaces the default source, all records of the entity named
// after the grid.
func WithScope(fn SourceFunc) Option {
	return func(g *Grid) {
		g.source = fn
	}
}

// New declares a grid. configure receives a Builder that adds columns in
// display order. Declaration mistakes are reported as ext.ErrConfig errors.
func New(name string, configure func(*Builder), opts ...Option) (*Grid, error) {
	g := &Grid{
		name:  name,
		rowID: core.Record.ID,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.source == nil {
		g.sortPrefix = core.Plural(core.Singular(name)) + "."
	}

	b := &Builder{grid: g, subject: fmt.Sprintf("grid %q", name), ids: make(map[string]bool)}
	if configure != nil {
		configure(b)
	}
	if err := b.finish(); err != nil {
		return nil, err
	}

	return g, nil
}

// MustNew is like New but panics on a declaration error.
func MustNew(name string, configure func(*Builder), opts ...Option) *Grid {
	g, err := New(name, configure, opts...)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Grid) Name() string {
	return g.name
}

// Columns returns the columns in display order.
func (g *Grid) Columns() []Column {
	return append([]Column(nil), g.columns...)
}

// MetadataAction and DataAction name the endpoints serving the grid.
func (g *Grid) MetadataAction() string {
	return g.name + "_grid_metadata"
}

func (g *Grid) DataAction() string {
	return g.name + "_grid_data"
}

func (g *Grid) resolveSource(req *ext.Request) (core.Source, error) {
	if g.source != nil {
		return g.source(req)
	}
	if req == nil || req.Store == nil {
		return nil, errors.New("grid " + g.name + ": no record store")
	}
	return req.Store.Lookup(core.Singular(g.name))
}

func (g *Grid) column(id string) (Column, bool) {
	for _, col := range g.columns {
		if col.ID == id {
			return col, true
		}
	}
	return Column{}, false
}

func (g *Grid) logDebug(req *ext.Request, msg string, args ...any) {
	ctxlog.FromContext(req.Ctx()).Debug(msg, append([]any{"grid", g.name}, args...)...)
}
