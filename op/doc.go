// Package op provides table and database level operations on top of the
// persistence layer.
//
// # DatabaseOp
//
//	dbOp, err := op.GetDatabase("shop", persistence)
//	tables := dbOp.TableNames()
//	dbOp.DropDatabase(identity)
//
// # TableOp
//
//	tableOp, err := op.GetTable("shop", "orders", persistence)
//
//	values, exists, err := tableOp.GetValues("1")
//	tableOp.PutAll(map[string][]byte{...}, identity)
//	tableOp.Delete("1", identity)
//
//	for key, values := range tableOp.ScanValues() {
//	    // decoded records in key order
//	}
//
// # Architecture
//
//	Grid / Tree engines (grid/, tree/)
//	     ↓
//	Record store (db/)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	Persistence (ps/)
//	     ↓
//	Git Storage (go-git)
package op
