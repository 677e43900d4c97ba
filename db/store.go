package db

import (
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/op"
	"github.com/nickyhof/easyext/ps"
)

// Store is a record store over one database of a git-backed repository.
// It implements core.Store.
type Store struct {
	Persistence *ps.Persistence
	Database    string
	Identity    core.Identity

	indexes *ps.IndexManager
	writeMu sync.Mutex
}

var _ core.Store = (*Store)(nil)

// NewStore opens the named database, creating it when missing, and loads
// the indexes of its tables.
func NewStore(persistence *ps.Persistence, database string, identity core.Identity) (*Store, error) {
	dbOp, err := op.GetDatabase(database, persistence)
	if err != nil {
		_, dbOp, err = op.CreateDatabase(core.Database{Name: database}, persistence, identity)
		if err != nil {
			return nil, fmt.Errorf("failed to create database %s: %w", database, err)
		}
	}

	store := &Store{
		Persistence: persistence,
		Database:    database,
		Identity:    identity,
		indexes:     ps.NewIndexManager(persistence, identity),
	}

	tables, err := dbOp.Tables()
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if err := store.indexes.LoadIndexes(database, t.Table.Name, t.Table.Columns); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// CreateTable persists a table schema and indexes its belongs-to foreign
// keys. A table without a primary key column gets an integer "id".
func (s *Store) CreateTable(table core.Table) (ps.Transaction, error) {
	table.Database = s.Database

	pk := table.PrimaryKey()
	if _, ok := table.Column(pk); !ok {
		table.Columns = append([]core.Column{{Name: pk, Type: core.IntType, PrimaryKey: true}}, table.Columns...)
	}

	for _, assoc := range table.Associations {
		if assoc.Kind != core.BelongsTo {
			continue
		}
		if _, ok := table.Column(assoc.ForeignKey); !ok {
			return ps.Transaction{}, fmt.Errorf("association %s: foreign key %s is not a column of %s", assoc.Name, assoc.ForeignKey, table.Name)
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.Persistence.Lock()
	defer s.Persistence.Unlock()

	txn, _, err := op.CreateTable(table, s.Persistence, s.Identity)
	if err != nil {
		return ps.Transaction{}, err
	}

	for _, assoc := range table.Associations {
		if assoc.Kind != core.BelongsTo {
			continue
		}
		if _, exists := s.indexes.GetIndex(s.Database, table.Name, assoc.ForeignKey); exists {
			continue
		}
		name := fmt.Sprintf("idx_%s_%s", table.Name, assoc.ForeignKey)
		idx, err := s.indexes.CreateIndex(name, s.Database, table.Name, assoc.ForeignKey, false)
		if err != nil {
			return ps.Transaction{}, err
		}
		if err := s.indexes.RebuildIndex(idx, columnValue(assoc.ForeignKey)); err != nil {
			return ps.Transaction{}, err
		}
	}

	return *txn, nil
}

// Tables lists the tables of the database.
func (s *Store) Tables() []string {
	return s.Persistence.ListTables(s.Database)
}

// Table loads the schema of a table.
func (s *Store) Table(name string) (core.Table, error) {
	tableOp, err := op.GetTable(s.Database, name, s.Persistence)
	if err != nil {
		return core.Table{}, fmt.Errorf("%w: %s", core.ErrUnknownEntity, name)
	}
	return tableOp.Table, nil
}

// Lookup returns all records of the table backing an entity, e.g. "item"
// or "LineItem".
func (s *Store) Lookup(entity string) (core.Source, error) {
	return s.Query(core.TableName(entity))
}

// Query returns all records of a table.
func (s *Store) Query(table string) (*Query, error) {
	t, err := s.Table(table)
	if err != nil {
		return nil, err
	}
	return &Query{store: s, table: t, limit: -1}, nil
}

// Insert writes one record and returns its primary key.
func (s *Store) Insert(table string, values map[string]any) (string, ps.Transaction, error) {
	keys, txn, err := s.InsertAll(table, []map[string]any{values})
	if err != nil {
		return "", ps.Transaction{}, err
	}
	return keys[0], txn, nil
}

// InsertAll writes records in a single commit and returns their primary
// keys. Missing integer primary keys are assigned in sequence.
func (s *Store) InsertAll(table string, rows []map[string]any) ([]string, ps.Transaction, error) {
	if len(rows) == 0 {
		return nil, ps.Transaction{}, fmt.Errorf("no records to insert into %s", table)
	}

	t, err := s.Table(table)
	if err != nil {
		return nil, ps.Transaction{}, err
	}
	pk := t.PrimaryKey()
	pkColumn, _ := t.Column(pk)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.Persistence.Lock()
	defer s.Persistence.Unlock()

	next := s.nextKey(t)
	tb, err := s.Persistence.BeginTransaction()
	if err != nil {
		return nil, ps.Transaction{}, err
	}

	keys := make([]string, 0, len(rows))
	staged := make([]op.Values, 0, len(rows))
	for _, row := range rows {
		values := make(op.Values, len(row)+1)
		for name, v := range row {
			col, ok := t.Column(name)
			if !ok {
				tb.Rollback()
				return nil, ps.Transaction{}, fmt.Errorf("%w: %s.%s", core.ErrUnknownAttribute, table, name)
			}
			values[name] = formatColumnValue(v, col.Type)
		}

		if values[pk] == "" {
			if pkColumn.Type != core.IntType {
				tb.Rollback()
				return nil, ps.Transaction{}, fmt.Errorf("record for %s is missing primary key %s", table, pk)
			}
			values[pk] = strconv.FormatInt(next, 10)
			next++
		} else if n, err := strconv.ParseInt(values[pk], 10, 64); err == nil && n >= next {
			next = n + 1
		}

		data, err := op.EncodeValues(values)
		if err != nil {
			tb.Rollback()
			return nil, ps.Transaction{}, err
		}
		if err := tb.AddWrite(s.Database, table, values[pk], data); err != nil {
			return nil, ps.Transaction{}, err
		}

		keys = append(keys, values[pk])
		staged = append(staged, values)
	}

	if err := s.stageIndexes(tb, t, keys, staged); err != nil {
		tb.Rollback()
		return nil, ps.Transaction{}, err
	}

	txn, err := tb.Commit(s.Identity)
	if err != nil {
		return nil, ps.Transaction{}, err
	}

	return keys, txn, nil
}

// stageIndexes adds the new records to every index of the table and stages
// the touched indexes in the pending transaction.
func (s *Store) stageIndexes(tb *ps.TransactionBuilder, t core.Table, keys []string, rows []op.Values) error {
	for _, col := range t.Columns {
		idx, ok := s.indexes.GetIndex(s.Database, t.Name, col.Name)
		if !ok {
			continue
		}
		for i, values := range rows {
			if previous, exists := s.Persistence.GetRecord(s.Database, t.Name, keys[i]); exists {
				if old, err := op.DecodeValues(previous); err == nil {
					idx.Delete(old[col.Name], keys[i])
				}
			}
			if err := idx.Insert(values[col.Name], keys[i]); err != nil {
				return err
			}
		}
		if err := s.indexes.Stage(tb, idx); err != nil {
			return err
		}
	}
	return nil
}

// nextKey returns one past the largest integer primary key of a table.
func (s *Store) nextKey(t core.Table) int64 {
	var max int64
	for _, key := range s.Persistence.ListRecordKeys(s.Database, t.Name) {
		if n, err := strconv.ParseInt(key, 10, 64); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

// indexedKeys returns the primary keys an index holds for a value, or false
// when the column is not indexed.
func (s *Store) indexedKeys(table, column, value string) ([]string, bool) {
	idx, ok := s.indexes.GetIndex(s.Database, table, column)
	if !ok {
		return nil, false
	}
	return slices.Clone(idx.Lookup(value)), true
}

func columnValue(column string) func(data []byte) (string, bool) {
	return func(data []byte) (string, bool) {
		values, err := op.DecodeValues(data)
		if err != nil {
			return "", false
		}
		v, ok := values[column]
		return v, ok
	}
}

func formatColumnValue(v any, columnType core.ColumnType) string {
	if t, ok := v.(time.Time); ok && columnType == core.DateType {
		return t.Format(dateLayout)
	}
	return formatValue(v)
}
