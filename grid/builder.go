package grid

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/ext"
)

// Builder declares the columns and row handling of a grid.
type Builder struct {
	grid    *Grid
	subject string
	ids     map[string]bool
	seq     int
	errs    []error
}

type ColumnOption func(*Column)

// Label sets the column header.
func Label(label string) ColumnOption {
	return func(c *Column) { c.Label = label }
}

// Sort names the field the column sorts by.
func Sort(field string) ColumnOption {
	return func(c *Column) { c.SortKey = field }
}

func Sortable(sortable bool) ColumnOption {
	return func(c *Column) { c.Sortable = sortable }
}

func Width(width int) ColumnOption {
	return func(c *Column) { c.Width = width }
}

// Exclude keeps the column in rows but hides it from the column model.
func Exclude() ColumnOption {
	return func(c *Column) { c.Exclude = true }
}

func (b *Builder) fail(option, reason string) {
	b.errs = append(b.errs, ext.NewConfigError(b.subject, option, reason))
}

// Column adds a column reading the named attribute. The label defaults to
// the humanized name and the sort field to the qualified name.
func (b *Builder) Column(attr string, opts ...ColumnOption) *Builder {
	if attr == "" {
		b.fail("", "column attribute name is empty")
		return b
	}

	b.add(Column{
		ID:       attr,
		Accessor: ext.Attribute(attr),
		Label:    core.Humanize(attr),
		Sortable: true,
	}, opts)
	return b
}

// Computed adds a column whose value is computed per record. Its id is
// col_N, N counting computed columns from 1, and it only sorts when given
// a Sort option.
func (b *Builder) Computed(fn ext.ComputedFunc, opts ...ColumnOption) *Builder {
	b.seq++
	id := fmt.Sprintf("col_%d", b.seq)
	if fn == nil {
		b.fail("", "computed column "+id+" has no function")
		return b
	}

	b.add(Column{
		ID:       id,
		Accessor: ext.Computed(fn),
		Label:    id,
		Sortable: true,
	}, opts)
	return b
}

func (b *Builder) add(col Column, opts []ColumnOption) {
	for _, opt := range opts {
		opt(&col)
	}

	if b.ids[col.ID] {
		b.fail("", "duplicate column "+col.ID)
		return
	}
	if col.Width < 0 {
		b.fail("width", fmt.Sprintf("column %s: negative width %d", col.ID, col.Width))
		return
	}

	b.ids[col.ID] = true
	b.grid.columns = append(b.grid.columns, col)
}

// DelegateTo reads attribute columns off the record's attr association
// instead of the record itself, except for the listed column ids.
func (b *Builder) DelegateTo(attr string, except ...string) *Builder {
	if attr == "" {
		b.fail("delegate", "delegate attribute name is empty")
		return b
	}

	b.grid.delegate = attr
	b.grid.delegateExcept = make(map[string]bool, len(except))
	for _, id := range except {
		b.grid.delegateExcept[id] = true
	}
	return b
}

// RowID overrides the row id, by default the record id.
func (b *Builder) RowID(fn func(core.Record) string) *Builder {
	if fn == nil {
		b.fail("row_id", "row id function is nil")
		return b
	}
	b.grid.rowID = fn
	return b
}

// DefaultSortTable sets the table qualifying attribute sort fields. An
// empty entity leaves them unqualified.
func (b *Builder) DefaultSortTable(entity string) *Builder {
	if entity == "" {
		b.grid.sortPrefix = ""
	} else {
		b.grid.sortPrefix = core.TableName(entity) + "."
	}
	return b
}

func (b *Builder) finish() error {
	for id := range b.grid.delegateExcept {
		if !b.ids[id] {
			b.fail("except", "delegate exception names unknown column "+id)
		}
	}
	// map iteration order would otherwise make the joined message unstable
	slices.SortFunc(b.errs, func(x, y error) int {
		switch {
		case x.Error() < y.Error():
			return -1
		case x.Error() > y.Error():
			return 1
		}
		return 0
	})
	return errors.Join(b.errs...)
}

var columnOptionKeys = []string{"label", "sort", "sortable", "width"}

// ParseColumnOptions converts map-shaped column options, as read from a
// configuration file, into ColumnOptions. Only label, sort, sortable and
// width are accepted.
func ParseColumnOptions(options map[string]any) ([]ColumnOption, error) {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var opts []ColumnOption
	for _, key := range keys {
		value := options[key]
		switch key {
		case "label", "sort":
			s, ok := value.(string)
			if !ok {
				return nil, ext.NewConfigError("column", key, fmt.Sprintf("expected a string, got %T", value))
			}
			if key == "label" {
				opts = append(opts, Label(s))
			} else {
				opts = append(opts, Sort(s))
			}
		case "sortable":
			v, ok := value.(bool)
			if !ok {
				return nil, ext.NewConfigError("column", key, fmt.Sprintf("expected a bool, got %T", value))
			}
			opts = append(opts, Sortable(v))
		case "width":
			n, ok := toInt(value)
			if !ok {
				return nil, ext.NewConfigError("column", key, fmt.Sprintf("expected an integer, got %v", value))
			}
			opts = append(opts, Width(n))
		default:
			return nil, ext.NewConfigError("column", key, fmt.Sprintf("unknown column option, expected one of %v", columnOptionKeys))
		}
	}

	return opts, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}
