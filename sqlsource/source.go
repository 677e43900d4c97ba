// Package sqlsource serves records from any database/sql handle.
//
// Tables are resolved from entity names the same way as the git-backed
// store ("line_item" reads "line_items") and every table is expected to
// have an "id" primary key. Associations are not discovered from the
// schema and must be declared with Associate.
package sqlsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/nickyhof/easyext/core"
)

const primaryKey = "id"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Store implements core.Store over a SQL database.
type Store struct {
	db *sql.DB

	mu           sync.RWMutex
	associations map[string][]core.Association
}

var _ core.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{
		db:           db,
		associations: make(map[string][]core.Association),
	}
}

// Associate declares an association on the records of table.
func (s *Store) Associate(table string, assoc core.Association) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.associations[table] = append(s.associations[table], assoc)
}

func (s *Store) association(table, name string) (core.Association, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, assoc := range s.associations[table] {
		if assoc.Name == name {
			return assoc, true
		}
	}
	return core.Association{}, false
}

func (s *Store) Lookup(entity string) (core.Source, error) {
	return s.Query(core.TableName(entity))
}

// Query returns all rows of a table. The table must exist.
func (s *Store) Query(table string) (*Query, error) {
	if !identifierPattern.MatchString(table) || strings.Contains(table, ".") {
		return nil, fmt.Errorf("%w: invalid table name %q", core.ErrUnknownEntity, table)
	}

	rows, err := s.db.Query("SELECT * FROM " + table + " LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrUnknownEntity, table, err)
	}
	rows.Close()

	return &Query{store: s, table: table, limit: -1}, nil
}

type orderClause struct {
	field string
	dir   core.Direction
}

// Query is a lazily built SELECT. It implements core.Source.
type Query struct {
	store  *Store
	table  string
	conds  []core.Condition
	orders []orderClause
	offset int
	limit  int
}

var _ core.Source = (*Query)(nil)

func (q *Query) clone() *Query {
	c := *q
	c.conds = slices.Clone(q.conds)
	c.orders = slices.Clone(q.orders)
	return &c
}

func (q *Query) Filter(conds ...core.Condition) core.Source {
	c := q.clone()
	c.conds = append(c.conds, conds...)
	return c
}

func (q *Query) OrderBy(field string, dir core.Direction) core.Source {
	c := q.clone()
	c.orders = append(c.orders, orderClause{field: field, dir: dir})
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
	where, args, err := q.where()
	if err != nil {
		return 0, err
	}

	var count int
	if err := q.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.table+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table, err)
	}
	return count, nil
}

func (q *Query) Fetch(ctx context.Context) ([]core.Record, error) {
	query, args, err := q.selectSQL()
	if err != nil {
		return nil, err
	}
	return q.fetch(ctx, query, args)
}

func (q *Query) FetchByID(ctx context.Context, id string) (core.Record, error) {
	where, args, err := q.where()
	if err != nil {
		return nil, err
	}

	if where == "" {
		where = " WHERE "
	} else {
		where += " AND "
	}
	where += "CAST(" + primaryKey + " AS VARCHAR) = ?"
	args = append(args, id)

	records, err := q.fetch(ctx, "SELECT * FROM "+q.table+where, args)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s %s", core.ErrRecordNotFound, core.EntityType(q.table), id)
	}
	return records[0], nil
}

// SQL returns the SELECT statement and arguments Fetch would run.
func (q *Query) SQL() (string, []any, error) {
	return q.selectSQL()
}

func (q *Query) selectSQL() (string, []any, error) {
	where, args, err := q.where()
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(q.table)
	b.WriteString(where)

	order := make([]string, 0, len(q.orders)+1)
	for _, clause := range q.orders {
		if !identifierPattern.MatchString(clause.field) {
			return "", nil, fmt.Errorf("invalid order field %q", clause.field)
		}
		order = append(order, clause.field+" "+clause.dir.String())
	}
	// ties and unordered queries fall back to primary key order
	order = append(order, primaryKey+" ASC")
	b.WriteString(" ORDER BY ")
	b.WriteString(strings.Join(order, ", "))

	if q.limit >= 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
	}
	if q.offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.offset)
	}

	return b.String(), args, nil
}

func (q *Query) where() (string, []any, error) {
	if len(q.conds) == 0 {
		return "", nil, nil
	}

	parts := make([]string, 0, len(q.conds))
	var args []any
	for _, cond := range q.conds {
		if !identifierPattern.MatchString(cond.Field) {
			return "", nil, fmt.Errorf("invalid filter field %q", cond.Field)
		}

		switch cond.Operator {
		case core.InOperator:
			if len(cond.Values) == 0 {
				parts = append(parts, "FALSE")
				continue
			}
			marks := strings.TrimSuffix(strings.Repeat("?, ", len(cond.Values)), ", ")
			parts = append(parts, cond.Field+" IN ("+marks+")")
			args = append(args, cond.Values...)
		case core.LikeOperator:
			parts = append(parts, cond.Field+" ILIKE ?")
			args = append(args, cond.Value)
		default:
			parts = append(parts, cond.Field+" "+cond.Operator.String()+" ?")
			args = append(args, cond.Value)
		}
	}

	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (q *Query) fetch(ctx context.Context, query string, args []any) ([]core.Record, error) {
	rows, err := q.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	records := make([]core.Record, 0)
	for rows.Next() {
		dest := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.table, err)
		}

		values := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := dest[i].([]byte); ok {
				values[col] = string(b)
			} else {
				values[col] = dest[i]
			}
		}
		records = append(records, &Record{store: q.store, table: q.table, values: values})
	}

	return records, rows.Err()
}

// Record is one row of a SQL table.
type Record struct {
	store  *Store
	table  string
	values map[string]any
}

var _ core.Record = (*Record)(nil)

func (r *Record) ID() string {
	if v := r.values[primaryKey]; v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func (r *Record) Type() string {
	return core.EntityType(r.table)
}

// Attr reads a column or a declared association.
func (r *Record) Attr(name string) (any, error) {
	if v, ok := r.values[name]; ok {
		return v, nil
	}

	assoc, ok := r.store.association(r.table, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", core.ErrUnknownAttribute, r.Type(), name)
	}

	target, err := r.store.Query(assoc.Table)
	if err != nil {
		return nil, err
	}

	if assoc.Kind == core.HasMany {
		return target.Filter(core.Where(assoc.ForeignKey, r.values[primaryKey])), nil
	}

	fk := r.values[assoc.ForeignKey]
	if fk == nil {
		return nil, nil
	}
	rec, err := target.FetchByID(context.Background(), fmt.Sprint(fk))
	if errors.Is(err, core.ErrRecordNotFound) {
		return nil, nil
	}
	return rec, err
}
