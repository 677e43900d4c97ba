package ps

import (
	"encoding/json"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/nickyhof/easyext/core"
)

func databasePath(name string) string {
	return fmt.Sprintf("%s.database", name)
}

func tablePath(database, table string) string {
	return fmt.Sprintf("%s/%s.table", database, table)
}

func recordDir(database, table string) string {
	return fmt.Sprintf("%s/%s", database, table)
}

func (persistence *Persistence) CreateDatabase(database core.Database, identity core.Identity) (txn Transaction, err error) {
	dataBytes, err := json.Marshal(database)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to marshal database: %w", err)
	}

	return persistence.WriteFileDirect(databasePath(database.Name), dataBytes, identity, "Creating database")
}

func (persistence *Persistence) GetDatabase(name string) (d *core.Database, err error) {
	data, err := persistence.ReadFileDirect(databasePath(name))
	if err != nil {
		return nil, fmt.Errorf("database %s does not exist: %w", name, err)
	}

	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal database: %w", err)
	}

	return d, nil
}

func (persistence *Persistence) DropDatabase(name string, identity core.Identity) (txn Transaction, err error) {
	return persistence.DeletePathDirect([]string{databasePath(name), name}, identity, "Dropping database")
}

func (persistence *Persistence) CreateTable(table core.Table, identity core.Identity) (txn Transaction, err error) {
	return persistence.UpdateTable(table, identity, "Creating table")
}

func (persistence *Persistence) GetTable(database string, table string) (t *core.Table, err error) {
	data, err := persistence.ReadFileDirect(tablePath(database, table))
	if err != nil {
		return nil, fmt.Errorf("table %s.%s does not exist: %w", database, table, err)
	}

	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal table: %w", err)
	}

	return t, nil
}

// UpdateTable writes a table's schema, replacing any previous definition
func (persistence *Persistence) UpdateTable(table core.Table, identity core.Identity, message string) (txn Transaction, err error) {
	dataBytes, err := json.Marshal(table)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to marshal table: %w", err)
	}

	return persistence.WriteFileDirect(tablePath(table.Database, table.Name), dataBytes, identity, message)
}

func (persistence *Persistence) DropTable(database string, table string, identity core.Identity) (txn Transaction, err error) {
	paths := []string{
		tablePath(database, table),
		recordDir(database, table),
	}

	return persistence.DeletePathDirect(paths, identity, "Dropping table")
}

// SaveRecord writes records keyed by primary key in a single commit
func (persistence *Persistence) SaveRecord(database string, table string, records map[string][]byte, identity core.Identity) (txn Transaction, err error) {
	files := make(map[string][]byte, len(records))
	for key, data := range records {
		files[recordDir(database, table)+"/"+key] = data
	}

	return persistence.WriteFilesDirect(files, identity, fmt.Sprintf("Saving %d record(s) to %s.%s", len(records), database, table))
}

func (persistence *Persistence) DeleteRecord(database string, table string, key string, identity core.Identity) (txn Transaction, err error) {
	path := recordDir(database, table) + "/" + key
	return persistence.DeletePathDirect([]string{path}, identity, fmt.Sprintf("Deleting record %s from %s.%s", key, database, table))
}

func (persistence *Persistence) GetRecord(database string, table string, key string) (data []byte, exists bool) {
	data, err := persistence.ReadFileDirect(recordDir(database, table) + "/" + key)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (persistence *Persistence) ListDatabases() []string {
	entries, err := persistence.ListEntriesDirect(".")
	if err != nil {
		return nil
	}

	// A database exists as both a .database file and a directory
	databaseSet := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir && entry.Name != ".git" {
			databaseSet[entry.Name] = true
		} else if !entry.IsDir && strings.HasSuffix(entry.Name, ".database") {
			databaseSet[strings.TrimSuffix(entry.Name, ".database")] = true
		}
	}

	databases := make([]string, 0, len(databaseSet))
	for db := range databaseSet {
		databases = append(databases, db)
	}
	sort.Strings(databases)

	return databases
}

func (persistence *Persistence) ListTables(database string) []string {
	entries, err := persistence.ListEntriesDirect(database)
	if err != nil {
		return nil
	}

	var tables []string
	for _, entry := range entries {
		if !entry.IsDir && strings.HasSuffix(entry.Name, ".table") {
			tables = append(tables, strings.TrimSuffix(entry.Name, ".table"))
		}
	}

	return tables
}

func (persistence *Persistence) ListRecordKeys(database string, table string) []string {
	entries, err := persistence.ListEntriesDirect(recordDir(database, table))
	if err != nil {
		return nil
	}

	var keys []string
	for _, entry := range entries {
		if !entry.IsDir {
			keys = append(keys, entry.Name)
		}
	}

	return keys
}

// Scan iterates over the records of a table in key order. filterExpr, when
// set, skips records it rejects.
func (persistence *Persistence) Scan(database string, table string, filterExpr func(key string, value []byte) bool) iter.Seq2[string, []byte] {
	keys := persistence.ListRecordKeys(database, table)

	return func(yield func(key string, value []byte) bool) {
		for _, key := range keys {
			value, ok := persistence.GetRecord(database, table, key)
			if !ok {
				continue
			}

			if filterExpr != nil && !filterExpr(key, value) {
				continue
			}

			if !yield(key, value) {
				return
			}
		}
	}
}
