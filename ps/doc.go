// Package ps provides the git-backed persistence layer of the record store.
//
// Every write creates a commit built directly from blobs and trees with the
// go-git plumbing API, so the full history of a store is kept. Layout:
//
//	<db>.database              database definition
//	<db>/<table>.table         table schema
//	<db>/<table>.index.<col>   column index
//	<db>/<table>/<key>         record, one blob per primary key
//
// # Memory Persistence
//
//	persistence, err := ps.NewMemoryPersistence()
//
// # File Persistence
//
//	persistence, err := ps.NewFilePersistence("/path/to/data", nil)
//
// # Transaction Batching
//
//	txn, _ := persistence.BeginTransaction()
//	txn.AddWrite("db", "table", "key1", data1)
//	txn.AddWrite("db", "table", "key2", data2)
//	result, _ := txn.Commit(identity)
//
// # Remote Sync
//
// Push publishes the current branch. Pull only fast-forwards and returns
// ErrDiverged when both sides have new commits.
//
//	persistence.AddRemote("origin", "https://github.com/org/shop-data.git")
//	err := persistence.Push("origin", &ps.Auth{Token: token})
//	err = persistence.Pull("origin", &ps.Auth{Token: token})
package ps
