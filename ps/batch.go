package ps

import (
	"fmt"

	"github.com/nickyhof/easyext/core"
)

// Operation represents a single write operation in a transaction
type Operation struct {
	Type OperationType
	Path string
	Data []byte
}

type OperationType int

const (
	WriteOp OperationType = iota
	DeleteOp
)

// TransactionBuilder allows batching multiple write operations into a single commit
type TransactionBuilder struct {
	persistence *Persistence
	operations  []Operation
	started     bool
}

// BeginTransaction creates a new transaction builder for batching operations
func (persistence *Persistence) BeginTransaction() (*TransactionBuilder, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	return &TransactionBuilder{
		persistence: persistence,
		started:     true,
	}, nil
}

// AddWrite adds a record write to the transaction batch
func (tb *TransactionBuilder) AddWrite(database, table, key string, data []byte) error {
	return tb.AddFile(recordDir(database, table)+"/"+key, data)
}

// AddFile adds a write of an arbitrary repository path to the batch
func (tb *TransactionBuilder) AddFile(path string, data []byte) error {
	if !tb.started {
		return fmt.Errorf("transaction not started")
	}

	tb.operations = append(tb.operations, Operation{Type: WriteOp, Path: path, Data: data})
	return nil
}

// AddDelete adds a record delete to the transaction batch
func (tb *TransactionBuilder) AddDelete(database, table, key string) error {
	if !tb.started {
		return fmt.Errorf("transaction not started")
	}

	tb.operations = append(tb.operations, Operation{
		Type: DeleteOp,
		Path: recordDir(database, table) + "/" + key,
	})
	return nil
}

// Commit applies all batched operations in a single git commit
func (tb *TransactionBuilder) Commit(identity core.Identity) (Transaction, error) {
	if !tb.started {
		return Transaction{}, fmt.Errorf("transaction not started")
	}

	if len(tb.operations) == 0 {
		return Transaction{}, fmt.Errorf("no operations to commit")
	}

	changes := make([]TreeChange, 0, len(tb.operations))
	for _, op := range tb.operations {
		switch op.Type {
		case WriteOp:
			blobHash, err := tb.persistence.createBlob(op.Data)
			if err != nil {
				return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", op.Path, err)
			}
			changes = append(changes, TreeChange{Path: op.Path, BlobHash: blobHash})
		case DeleteOp:
			changes = append(changes, TreeChange{Path: op.Path, IsDelete: true})
		}
	}

	message := fmt.Sprintf("Batch transaction: %d operation(s)", len(tb.operations))
	txn, err := tb.persistence.commitChanges(changes, identity, message)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit: %w", err)
	}

	tb.started = false
	tb.operations = nil

	return txn, nil
}

// Rollback discards all batched operations without committing
func (tb *TransactionBuilder) Rollback() {
	tb.started = false
	tb.operations = nil
}

// OperationCount returns the number of pending operations
func (tb *TransactionBuilder) OperationCount() int {
	return len(tb.operations)
}
