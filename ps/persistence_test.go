package ps

import (
	"slices"
	"testing"
	"time"

	"github.com/nickyhof/easyext/core"
)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

// runWithBothPersistence runs a test against memory and file backed repositories.
func runWithBothPersistence(t *testing.T, test func(t *testing.T, p *Persistence)) {
	t.Run("memory", func(t *testing.T) {
		p, err := NewMemoryPersistence()
		if err != nil {
			t.Fatalf("Failed to create memory persistence: %v", err)
		}
		test(t, p)
	})

	t.Run("file", func(t *testing.T) {
		p, err := NewFilePersistence(t.TempDir(), nil)
		if err != nil {
			t.Fatalf("Failed to create file persistence: %v", err)
		}
		test(t, p)
	})
}

func TestNewMemoryPersistence(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create memory persistence: %v", err)
	}

	if !persistence.IsInitialized() {
		t.Error("Expected persistence to be initialized")
	}
}

func TestPersistenceNotInitialized(t *testing.T) {
	var persistence *Persistence

	if persistence.IsInitialized() {
		t.Error("Expected uninitialized persistence to return false")
	}

	if err := persistence.ensureInitialized(); err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestFilePersistenceReopen(t *testing.T) {
	dir := t.TempDir()

	p, err := NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	if _, err := p.CreateDatabase(core.Database{Name: "shop"}, testIdentity); err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}

	reopened, err := NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to reopen file persistence: %v", err)
	}

	if _, err := reopened.GetDatabase("shop"); err != nil {
		t.Errorf("Expected database to survive reopen: %v", err)
	}
}

func TestCreateAndGetTable(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, p *Persistence) {
		if _, err := p.CreateDatabase(core.Database{Name: "shop"}, testIdentity); err != nil {
			t.Fatalf("Failed to create database: %v", err)
		}

		table := core.Table{
			Database: "shop",
			Name:     "orders",
			Columns: []core.Column{
				{Name: "id", Type: core.IntType, PrimaryKey: true},
				{Name: "item_id", Type: core.IntType},
			},
			Associations: []core.Association{
				{Name: "item", Kind: core.BelongsTo, Table: "items", ForeignKey: "item_id"},
			},
		}

		txn, err := p.CreateTable(table, testIdentity)
		if err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
		if txn.Id == "" {
			t.Error("Expected transaction ID to be set")
		}

		got, err := p.GetTable("shop", "orders")
		if err != nil {
			t.Fatalf("Failed to get table: %v", err)
		}
		if len(got.Columns) != 2 {
			t.Errorf("Expected 2 columns, got %d", len(got.Columns))
		}
		if assoc, ok := got.Association("item"); !ok || assoc.ForeignKey != "item_id" {
			t.Errorf("Expected item association to round trip, got %+v", got.Associations)
		}

		if tables := p.ListTables("shop"); !slices.Equal(tables, []string{"orders"}) {
			t.Errorf("Expected [orders], got %v", tables)
		}
	})
}

func TestSaveGetDeleteRecord(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, p *Persistence) {
		records := map[string][]byte{
			"1": []byte(`{"id":"1","name":"Alice"}`),
			"2": []byte(`{"id":"2","name":"Bob"}`),
		}
		if _, err := p.SaveRecord("shop", "users", records, testIdentity); err != nil {
			t.Fatalf("Failed to save records: %v", err)
		}

		data, exists := p.GetRecord("shop", "users", "1")
		if !exists {
			t.Fatal("Expected record to exist")
		}
		if string(data) != `{"id":"1","name":"Alice"}` {
			t.Errorf("Unexpected record data: %s", data)
		}

		if _, err := p.DeleteRecord("shop", "users", "1", testIdentity); err != nil {
			t.Fatalf("Failed to delete record: %v", err)
		}
		if _, exists := p.GetRecord("shop", "users", "1"); exists {
			t.Error("Expected record to be deleted")
		}

		if keys := p.ListRecordKeys("shop", "users"); !slices.Equal(keys, []string{"2"}) {
			t.Errorf("Expected [2], got %v", keys)
		}
	})
}

func TestDropDatabase(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, p *Persistence) {
		p.CreateDatabase(core.Database{Name: "shop"}, testIdentity)
		p.CreateDatabase(core.Database{Name: "crm"}, testIdentity)
		p.SaveRecord("shop", "users", map[string][]byte{"1": []byte(`{}`)}, testIdentity)

		if got := p.ListDatabases(); !slices.Equal(got, []string{"crm", "shop"}) {
			t.Errorf("Expected [crm shop], got %v", got)
		}

		if _, err := p.DropDatabase("shop", testIdentity); err != nil {
			t.Fatalf("Failed to drop database: %v", err)
		}

		if got := p.ListDatabases(); !slices.Equal(got, []string{"crm"}) {
			t.Errorf("Expected [crm], got %v", got)
		}
		if _, exists := p.GetRecord("shop", "users", "1"); exists {
			t.Error("Expected records to be dropped with the database")
		}
	})
}

func TestScanFilter(t *testing.T) {
	p, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	p.SaveRecord("shop", "items", map[string][]byte{
		"1": []byte("a"),
		"2": []byte("b"),
		"3": []byte("a"),
	}, testIdentity)

	var keys []string
	for key := range p.Scan("shop", "items", func(key string, value []byte) bool { return string(value) == "a" }) {
		keys = append(keys, key)
	}

	if !slices.Equal(keys, []string{"1", "3"}) {
		t.Errorf("Expected [1 3], got %v", keys)
	}
}

func TestLatestTransaction(t *testing.T) {
	p, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	if txn := p.LatestTransaction(); txn.Id != "" {
		t.Errorf("Expected empty transaction on fresh repository, got %s", txn)
	}

	written, err := p.CreateDatabase(core.Database{Name: "shop"}, testIdentity)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}

	latest := p.LatestTransaction()
	if latest.Id != written.Id {
		t.Errorf("Expected latest %s, got %s", written.Id, latest.Id)
	}
	if latest.Author != "test <test@test.com>" {
		t.Errorf("Unexpected author %q", latest.Author)
	}

	if since := p.TransactionsSince(written.When.Add(-time.Minute)); len(since) != 1 {
		t.Errorf("Expected 1 transaction, got %d", len(since))
	}
}
