package db

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/op"
)

// Row is a stored record. Column values are typed by the table schema.
type Row struct {
	store  *Store
	table  core.Table
	key    string
	values op.Values
}

var _ core.Record = (*Row)(nil)

func (r *Row) ID() string {
	return r.key
}

func (r *Row) Type() string {
	return core.EntityType(r.table.Name)
}

// Attr reads a column or an association. A belongs-to association yields
// the associated *Row, or nil when the foreign key is empty or dangling.
// A has-many association yields a core.Source of the children.
func (r *Row) Attr(name string) (any, error) {
	if col, ok := r.table.Column(name); ok {
		return parseValue(r.values[name], col.Type), nil
	}

	assoc, ok := r.table.Association(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", core.ErrUnknownAttribute, core.EntityType(r.table.Name), name)
	}

	target, err := r.store.Query(assoc.Table)
	if err != nil {
		return nil, err
	}

	switch assoc.Kind {
	case core.BelongsTo:
		fk := r.values[assoc.ForeignKey]
		if fk == "" {
			return nil, nil
		}
		rec, err := target.FetchByID(context.Background(), fk)
		if errors.Is(err, core.ErrRecordNotFound) {
			return nil, nil
		}
		return rec, err
	default:
		return target.Filter(core.Where(assoc.ForeignKey, r.key)), nil
	}
}

// Values returns a copy of the stored string values.
func (r *Row) Values() op.Values {
	return maps.Clone(r.values)
}

// Map returns the typed column values keyed by column name.
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.table.Columns))
	for _, col := range r.table.Columns {
		m[col.Name] = parseValue(r.values[col.Name], col.Type)
	}
	return m
}
