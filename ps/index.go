package ps

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/nickyhof/easyext/core"
)

// Index maps the values of one column to the primary keys holding them
type Index struct {
	Name     string              `json:"name"`
	Database string              `json:"database"`
	Table    string              `json:"table"`
	Column   string              `json:"column"`
	Unique   bool                `json:"unique"`
	Entries  map[string][]string `json:"entries"` // column value -> list of primary keys
}

// IndexManager keeps the indexes of a persistence layer in memory and
// writes them back alongside the records they cover.
type IndexManager struct {
	persistence *Persistence
	identity    core.Identity
	indexes     map[string]*Index // key: database.table.column
	mu          sync.RWMutex
}

func NewIndexManager(persistence *Persistence, identity core.Identity) *IndexManager {
	return &IndexManager{
		persistence: persistence,
		identity:    identity,
		indexes:     make(map[string]*Index),
	}
}

func indexKey(database, table, column string) string {
	return fmt.Sprintf("%s.%s.%s", database, table, column)
}

func indexPath(database, table, column string) string {
	return fmt.Sprintf("%s/%s.index.%s", database, table, column)
}

// CreateIndex registers an empty index on a column. It is persisted by
// Stage or SaveIndex once populated.
func (im *IndexManager) CreateIndex(name, database, table, column string, unique bool) (*Index, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	key := indexKey(database, table, column)
	if _, exists := im.indexes[key]; exists {
		return nil, fmt.Errorf("index already exists on %s", key)
	}

	idx := &Index{
		Name:     name,
		Database: database,
		Table:    table,
		Column:   column,
		Unique:   unique,
		Entries:  make(map[string][]string),
	}
	im.indexes[key] = idx

	return idx, nil
}

// GetIndex retrieves an existing index
func (im *IndexManager) GetIndex(database, table, column string) (*Index, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	idx, exists := im.indexes[indexKey(database, table, column)]
	return idx, exists
}

// SaveIndex persists an index in its own commit
func (im *IndexManager) SaveIndex(idx *Index) error {
	data, err := im.encode(idx)
	if err != nil {
		return err
	}

	_, err = im.persistence.WriteFileDirect(indexPath(idx.Database, idx.Table, idx.Column), data, im.identity, "Saving index")
	return err
}

// Stage adds the current state of an index to a pending transaction
func (im *IndexManager) Stage(tb *TransactionBuilder, idx *Index) error {
	data, err := im.encode(idx)
	if err != nil {
		return err
	}

	return tb.AddFile(indexPath(idx.Database, idx.Table, idx.Column), data)
}

func (im *IndexManager) encode(idx *Index) ([]byte, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	data, err := json.Marshal(idx)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal index: %w", err)
	}
	return data, nil
}

// DropIndex removes an index from memory and storage
func (im *IndexManager) DropIndex(database, table, column string) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	key := indexKey(database, table, column)
	if _, exists := im.indexes[key]; !exists {
		return fmt.Errorf("index not found on %s", key)
	}

	if _, err := im.persistence.DeletePathDirect([]string{indexPath(database, table, column)}, im.identity, "Deleting index"); err != nil {
		return err
	}

	delete(im.indexes, key)
	return nil
}

// LoadIndexes loads the persisted indexes of a table's columns
func (im *IndexManager) LoadIndexes(database, table string, columns []core.Column) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	for _, col := range columns {
		data, err := im.persistence.ReadFileDirect(indexPath(database, table, col.Name))
		if err != nil {
			continue
		}

		var idx Index
		if err := json.Unmarshal(data, &idx); err != nil {
			return fmt.Errorf("failed to unmarshal index %s: %w", indexKey(database, table, col.Name), err)
		}

		im.indexes[indexKey(database, table, col.Name)] = &idx
	}

	return nil
}

// RebuildIndex repopulates an index from every record of its table.
// valueOf extracts the indexed column from a stored record; records for
// which it reports false are left out.
func (im *IndexManager) RebuildIndex(idx *Index, valueOf func(data []byte) (string, bool)) error {
	im.mu.Lock()
	idx.Entries = make(map[string][]string)
	for key, data := range im.persistence.Scan(idx.Database, idx.Table, nil) {
		value, ok := valueOf(data)
		if !ok {
			continue
		}
		if err := idx.Insert(value, key); err != nil {
			im.mu.Unlock()
			return err
		}
	}
	im.mu.Unlock()

	return im.SaveIndex(idx)
}

// Insert adds an entry to the index
func (idx *Index) Insert(columnValue, primaryKey string) error {
	keys := idx.Entries[columnValue]
	if slices.Contains(keys, primaryKey) {
		return nil
	}

	if idx.Unique && len(keys) > 0 {
		return fmt.Errorf("duplicate value %s violates unique constraint on index %s", columnValue, idx.Name)
	}

	idx.Entries[columnValue] = append(keys, primaryKey)
	return nil
}

// Delete removes an entry from the index
func (idx *Index) Delete(columnValue, primaryKey string) {
	keys := idx.Entries[columnValue]
	i := slices.Index(keys, primaryKey)
	if i < 0 {
		return
	}

	keys = slices.Delete(keys, i, i+1)
	if len(keys) == 0 {
		delete(idx.Entries, columnValue)
		return
	}
	idx.Entries[columnValue] = keys
}

// Lookup finds primary keys for a given column value
func (idx *Index) Lookup(columnValue string) []string {
	return idx.Entries[columnValue]
}
