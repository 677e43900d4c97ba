package db

import (
	"context"
	"fmt"
	"slices"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/op"
)

// Query is a lazily evaluated selection over one table. It implements
// core.Source; every shaping method returns a copy.
type Query struct {
	store  *Store
	table  core.Table
	conds  []core.Condition
	orders []orderClause
	offset int
	limit  int // negative means unbounded
}

var _ core.Source = (*Query)(nil)

func (q *Query) clone() *Query {
	c := *q
	c.conds = slices.Clone(q.conds)
	c.orders = slices.Clone(q.orders)
	return &c
}

// Table returns the schema of the queried table.
func (q *Query) Table() core.Table {
	return q.table
}

func (q *Query) Filter(conds ...core.Condition) core.Source {
	c := q.clone()
	c.conds = append(c.conds, conds...)
	return c
}

// OrderBy adds a sort clause. A "table." qualifier on the field is ignored
// and fields that are not columns sort as empty values.
func (q *Query) OrderBy(field string, dir core.Direction) core.Source {
	c := q.clone()
	c.orders = append(c.orders, orderClause{
		Column:     unqualified(field),
		Descending: dir == core.Descending,
	})
	return c
}

func (q *Query) Offset(n int) core.Source {
	c := q.clone()
	c.offset = max(n, 0)
	return c
}

func (q *Query) Limit(n int) core.Source {
	c := q.clone()
	c.limit = n
	return c
}

func (q *Query) Count(ctx context.Context) (int, error) {
	rows, err := q.evaluate(ctx)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (q *Query) Fetch(ctx context.Context) ([]core.Record, error) {
	rows, err := q.evaluate(ctx)
	if err != nil {
		return nil, err
	}

	start := min(q.offset, len(rows))
	end := len(rows)
	if q.limit >= 0 {
		end = min(start+q.limit, end)
	}

	records := make([]core.Record, 0, end-start)
	for _, row := range rows[start:end] {
		records = append(records, row)
	}
	return records, nil
}

func (q *Query) FetchByID(ctx context.Context, id string) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.store.Persistence.RLock()
	defer q.store.Persistence.RUnlock()

	row, ok, err := q.load(id)
	if err != nil {
		return nil, err
	}
	if !ok || !matchesConditions(row.values, q.conds) {
		return nil, fmt.Errorf("%w: %s %s", core.ErrRecordNotFound, core.EntityType(q.table.Name), id)
	}
	return row, nil
}

// evaluate returns every matching row in query order, before paging.
func (q *Query) evaluate(ctx context.Context) ([]*Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.store.Persistence.RLock()
	defer q.store.Persistence.RUnlock()

	var rows []*Row
	for _, key := range q.candidateKeys() {
		row, ok, err := q.load(key)
		if err != nil {
			return nil, err
		}
		if ok && matchesConditions(row.values, q.conds) {
			rows = append(rows, row)
		}
	}

	sortRows(rows, q.table.PrimaryKey(), q.orders)
	return rows, nil
}

// candidateKeys narrows the scan through an index when an equality
// condition targets an indexed column.
func (q *Query) candidateKeys() []string {
	for _, cond := range q.conds {
		if cond.Operator != core.EqualsOperator {
			continue
		}
		if keys, ok := q.store.indexedKeys(q.table.Name, unqualified(cond.Field), formatValue(cond.Value)); ok {
			return keys
		}
	}
	return q.store.Persistence.ListRecordKeys(q.store.Database, q.table.Name)
}

func (q *Query) load(key string) (*Row, bool, error) {
	data, exists := q.store.Persistence.GetRecord(q.store.Database, q.table.Name, key)
	if !exists {
		return nil, false, nil
	}

	values, err := op.DecodeValues(data)
	if err != nil {
		return nil, false, fmt.Errorf("%s.%s/%s: %w", q.store.Database, q.table.Name, key, err)
	}

	return &Row{store: q.store, table: q.table, key: key, values: values}, true, nil
}
