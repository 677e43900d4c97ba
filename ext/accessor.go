package ext

import (
	"fmt"
	"strconv"
	"time"

	"github.com/nickyhof/easyext/core"
)

type AccessorKind int

const (
	NoAccessor AccessorKind = iota
	AttributeAccessor
	ComputedAccessor
	MethodAccessor
	LiteralAccessor
)

func (k AccessorKind) String() string {
	switch k {
	case AttributeAccessor:
		return "attribute"
	case ComputedAccessor:
		return "computed"
	case MethodAccessor:
		return "method"
	case LiteralAccessor:
		return "literal"
	default:
		return "none"
	}
}

// ComputedFunc derives a value from a record in the context of a request.
type ComputedFunc func(req *Request, rec core.Record) (any, error)

// MethodFunc derives a value from a record alone.
type MethodFunc func(rec core.Record) (any, error)

// Accessor says how to read one value off a record. The zero Accessor is
// unset and resolves to nil.
type Accessor struct {
	kind     AccessorKind
	name     string
	computed ComputedFunc
	method   MethodFunc
	value    any
}

// Attribute reads the named attribute of the record.
func Attribute(name string) Accessor {
	return Accessor{kind: AttributeAccessor, name: name}
}

func Computed(fn ComputedFunc) Accessor {
	return Accessor{kind: ComputedAccessor, computed: fn}
}

func Method(fn MethodFunc) Accessor {
	return Accessor{kind: MethodAccessor, method: fn}
}

// Literal always resolves to v.
func Literal(v any) Accessor {
	return Accessor{kind: LiteralAccessor, value: v}
}

func (a Accessor) Kind() AccessorKind {
	return a.kind
}

// Name returns the attribute name of an Attribute accessor, else "".
func (a Accessor) Name() string {
	return a.name
}

func (a Accessor) IsZero() bool {
	return a.kind == NoAccessor
}

// Resolve reads the value for rec.
func (a Accessor) Resolve(req *Request, rec core.Record) (any, error) {
	switch a.kind {
	case AttributeAccessor:
		if rec == nil {
			return nil, nil
		}
		return rec.Attr(a.name)
	case ComputedAccessor:
		return a.computed(req, rec)
	case MethodAccessor:
		return a.method(rec)
	case LiteralAccessor:
		return a.value, nil
	default:
		return nil, nil
	}
}

// Stringify renders a resolved value for display fields. nil is "".
func Stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []byte:
		return string(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case time.Time:
		return value.Format(time.RFC3339)
	case core.Record:
		return value.ID()
	default:
		return fmt.Sprint(value)
	}
}
