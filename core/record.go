package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrRecordNotFound   = errors.New("record not found")
	ErrUnknownEntity    = errors.New("unknown entity")
)

// Record is a single row handed to grids and trees.
type Record interface {
	// ID returns the primary identifier of the record.
	ID() string
	// Type returns the runtime type name of the record, e.g. "LineItem".
	Type() string
	// Attr reads a named attribute. Associations resolve to a Record
	// (belongs-to) or a Source (has-many).
	Attr(name string) (any, error)
}

// Source is a lazily evaluated collection of records. Every shaping call
// returns a new Source and leaves the receiver untouched.
type Source interface {
	Filter(conds ...Condition) Source
	OrderBy(field string, dir Direction) Source
	Offset(n int) Source
	Limit(n int) Source

	// Count returns the number of records matching the filters. Offset and
	// limit are ignored.
	Count(ctx context.Context) (int, error)
	Fetch(ctx context.Context) ([]Record, error)
	// FetchByID returns the record with the given id among the filtered
	// records, ignoring order and paging.
	FetchByID(ctx context.Context, id string) (Record, error)
}

// Store resolves an entity name such as "item" or "line_item" to the
// source of all its records.
type Store interface {
	Lookup(entity string) (Source, error)
}

type Direction int

const (
	Ascending Direction = iota
	Descending
)

// ParseDirection maps the widget's "ASC" literal to Ascending and anything
// else to Descending.
func ParseDirection(s string) Direction {
	if s == "ASC" {
		return Ascending
	}
	return Descending
}

func (d Direction) String() string {
	if d == Ascending {
		return "ASC"
	}
	return "DESC"
}

type Operator int

const (
	EqualsOperator Operator = iota
	NotEqualsOperator
	LessThanOperator
	GreaterThanOperator
	LessThanOrEqualOperator
	GreaterThanOrEqualOperator
	LikeOperator
	InOperator
)

var operatorSymbols = map[Operator]string{
	EqualsOperator:             "=",
	NotEqualsOperator:          "!=",
	LessThanOperator:           "<",
	GreaterThanOperator:        ">",
	LessThanOrEqualOperator:    "<=",
	GreaterThanOrEqualOperator: ">=",
	LikeOperator:               "LIKE",
	InOperator:                 "IN",
}

func (op Operator) String() string {
	return operatorSymbols[op]
}

// ParseOperator parses a comparison symbol. "==" and "<>" are accepted as
// aliases and keywords are case-insensitive.
func ParseOperator(s string) (Operator, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "==":
		return EqualsOperator, nil
	case "<>":
		return NotEqualsOperator, nil
	}
	for op, sym := range operatorSymbols {
		if sym == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

// Condition restricts a Source to records whose Field compares to Value
// (or, for InOperator, to one of Values).
type Condition struct {
	Field    string
	Operator Operator
	Value    any
	Values   []any
}

// Where is shorthand for an equality condition.
func Where(field string, value any) Condition {
	return Condition{Field: field, Operator: EqualsOperator, Value: value}
}

func (c Condition) String() string {
	if c.Operator == InOperator {
		return fmt.Sprintf("%s IN %v", c.Field, c.Values)
	}
	return fmt.Sprintf("%s %s %v", c.Field, c.Operator, c.Value)
}
