package op

import (
	"encoding/json"
	"fmt"
	"iter"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/ps"
)

// Values is the stored form of a record: every column as a string.
type Values map[string]string

type TableOp struct {
	Table       core.Table
	Persistence *ps.Persistence
}

func CreateTable(table core.Table, persistence *ps.Persistence, identity core.Identity) (*ps.Transaction, *TableOp, error) {
	txn, err := persistence.CreateTable(table, identity)
	if err != nil {
		return nil, nil, err
	}

	return &txn, &TableOp{
		Table:       table,
		Persistence: persistence,
	}, nil
}

func GetTable(database string, tableName string, persistence *ps.Persistence) (*TableOp, error) {
	table, err := persistence.GetTable(database, tableName)
	if err != nil {
		return nil, err
	}

	return &TableOp{
		Table:       *table,
		Persistence: persistence,
	}, nil
}

func (op *TableOp) DropTable(identity core.Identity) (txn ps.Transaction, err error) {
	return op.Persistence.DropTable(op.Table.Database, op.Table.Name, identity)
}

func (op *TableOp) Get(key string) (value []byte, exists bool) {
	return op.Persistence.GetRecord(op.Table.Database, op.Table.Name, key)
}

// GetValues reads and decodes the record stored under key.
func (op *TableOp) GetValues(key string) (Values, bool, error) {
	data, exists := op.Get(key)
	if !exists {
		return nil, false, nil
	}

	values, err := DecodeValues(data)
	if err != nil {
		return nil, true, fmt.Errorf("record %s.%s/%s: %w", op.Table.Database, op.Table.Name, key, err)
	}
	return values, true, nil
}

func (op *TableOp) Put(key string, value []byte, identity core.Identity) (txn ps.Transaction, err error) {
	return op.PutAll(map[string][]byte{key: value}, identity)
}

func (op *TableOp) PutAll(records map[string][]byte, identity core.Identity) (txn ps.Transaction, err error) {
	return op.Persistence.SaveRecord(op.Table.Database, op.Table.Name, records, identity)
}

func (op *TableOp) Delete(key string, identity core.Identity) (txn ps.Transaction, err error) {
	return op.Persistence.DeleteRecord(op.Table.Database, op.Table.Name, key, identity)
}

func (op *TableOp) Count() int {
	return len(op.Keys())
}

func (op *TableOp) Keys() []string {
	return op.Persistence.ListRecordKeys(op.Table.Database, op.Table.Name)
}

func (op *TableOp) Scan() iter.Seq2[string, []byte] {
	return op.Persistence.Scan(op.Table.Database, op.Table.Name, nil)
}

func (op *TableOp) ScanWithFilter(filterExpr func(key string, value []byte) bool) iter.Seq2[string, []byte] {
	return op.Persistence.Scan(op.Table.Database, op.Table.Name, filterExpr)
}

// ScanValues iterates over the decoded records of the table. Records that
// fail to decode are skipped.
func (op *TableOp) ScanValues() iter.Seq2[string, Values] {
	return func(yield func(string, Values) bool) {
		for key, data := range op.Scan() {
			values, err := DecodeValues(data)
			if err != nil {
				continue
			}
			if !yield(key, values) {
				return
			}
		}
	}
}

func EncodeValues(values Values) ([]byte, error) {
	return json.Marshal(values)
}

func DecodeValues(data []byte) (Values, error) {
	var values Values
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return values, nil
}
