package db

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/op"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339
)

// matchesConditions reports whether a stored record satisfies every condition
func matchesConditions(values op.Values, conds []core.Condition) bool {
	for _, cond := range conds {
		if !evaluateCondition(values, cond) {
			return false
		}
	}
	return true
}

// evaluateCondition evaluates a single condition against a stored record
func evaluateCondition(values op.Values, cond core.Condition) bool {
	value := values[unqualified(cond.Field)]
	right := formatValue(cond.Value)

	switch cond.Operator {
	case core.EqualsOperator:
		return value == right
	case core.NotEqualsOperator:
		return value != right
	case core.LessThanOperator:
		return compareValues(value, right) < 0
	case core.GreaterThanOperator:
		return compareValues(value, right) > 0
	case core.LessThanOrEqualOperator:
		return compareValues(value, right) <= 0
	case core.GreaterThanOrEqualOperator:
		return compareValues(value, right) >= 0
	case core.LikeOperator:
		return matchLike(value, right)
	case core.InOperator:
		for _, v := range cond.Values {
			if value == formatValue(v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// compareValues compares two values, trying numeric comparison first, then string
func compareValues(a, b string) int {
	aNum, aErr := strconv.ParseFloat(a, 64)
	bNum, bErr := strconv.ParseFloat(b, 64)

	if aErr == nil && bErr == nil {
		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		}
		return 0
	}

	return strings.Compare(a, b)
}

// matchLike performs simple case-insensitive LIKE matching with % wildcards
func matchLike(value, pattern string) bool {
	if pattern == "%" {
		return true
	}

	lower := strings.ToLower(value)
	search := strings.ToLower(strings.Trim(pattern, "%"))

	switch {
	case strings.HasPrefix(pattern, "%") && strings.HasSuffix(pattern, "%"):
		return strings.Contains(lower, search)
	case strings.HasPrefix(pattern, "%"):
		return strings.HasSuffix(lower, search)
	case strings.HasSuffix(pattern, "%"):
		return strings.HasPrefix(lower, search)
	}

	return strings.EqualFold(value, pattern)
}

type orderClause struct {
	Column     string
	Descending bool
}

// sortRows orders rows by primary key, then stably by each clause in turn
func sortRows(rows []*Row, pk string, orderBy []orderClause) {
	sort.SliceStable(rows, func(i, j int) bool {
		return compareValues(rows[i].values[pk], rows[j].values[pk]) < 0
	})

	if len(orderBy) == 0 {
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, clause := range orderBy {
			cmp := compareValues(rows[i].values[clause.Column], rows[j].values[clause.Column])
			if cmp != 0 {
				if clause.Descending {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
}

// unqualified strips a "table." qualifier from a field name
func unqualified(field string) string {
	if _, name, ok := strings.Cut(field, "."); ok {
		return name
	}
	return field
}

// formatValue converts a Go value to its stored string form
func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []byte:
		return string(value)
	case bool:
		return strconv.FormatBool(value)
	case int:
		return strconv.Itoa(value)
	case int32:
		return strconv.FormatInt(int64(value), 10)
	case int64:
		return strconv.FormatInt(value, 10)
	case uint:
		return strconv.FormatUint(uint64(value), 10)
	case uint64:
		return strconv.FormatUint(value, 10)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case json.Number:
		return value.String()
	case time.Time:
		return value.Format(timestampLayout)
	case fmt.Stringer:
		return value.String()
	case map[string]any, []any:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(data)
	default:
		return fmt.Sprint(value)
	}
}

// parseValue converts a stored string to the Go type of its column. Empty
// values of non-text columns read as nil; unparsable values stay strings.
func parseValue(raw string, columnType core.ColumnType) any {
	if raw == "" && columnType != core.StringType && columnType != core.TextType {
		return nil
	}

	switch columnType {
	case core.IntType:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	case core.FloatType:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case core.BoolType:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	case core.DateType:
		if t, err := time.Parse(dateLayout, raw); err == nil {
			return t
		}
	case core.TimestampType:
		if t, err := time.Parse(timestampLayout, raw); err == nil {
			return t
		}
	case core.JsonType:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v
		}
	}

	return raw
}
