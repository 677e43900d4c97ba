package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
)

const itemsSchema = `{
  "name": "items",
  "columns": [
    {"name": "id", "type": 1, "primaryKey": true},
    {"name": "name", "type": 0},
    {"name": "value", "type": 2}
  ],
  "associations": [
    {"name": "orders", "kind": 1, "table": "orders", "foreignKey": "item_id"}
  ]
}`

const ordersSchema = `{
  "name": "orders",
  "columns": [
    {"name": "item_id", "type": 1},
    {"name": "quantity", "type": 1}
  ],
  "associations": [
    {"name": "item", "kind": 0, "table": "items", "foreignKey": "item_id"}
  ]
}`

const shopConfig = `
controller "item" {
  grid "items" {
    column "name" {}
    column "value" { label = "Price" }
  }
  tree "item" {
    stable_ids = true
    node "item" {
      text     = name
      children = orders
    }
    node "order" {
      text = quantity
    }
  }
}
`

type testEnv struct {
	dir     string
	baseDir string
	config  string
}

func setupTestEnv(t *testing.T) *testEnv {
	dir := t.TempDir()
	env := &testEnv{
		dir:     dir,
		baseDir: filepath.Join(dir, "repo"),
		config:  filepath.Join(dir, "shop.hcl"),
	}

	env.write(t, "items.json", itemsSchema)
	env.write(t, "orders.json", ordersSchema)
	env.write(t, "shop.hcl", shopConfig)
	env.write(t, "items.jsonl", "{\"name\":\"Hello\",\"value\":1.5}\n\n{\"name\":\"Howdy\",\"value\":2}\n")
	env.write(t, "orders.jsonl", "{\"item_id\":1,\"quantity\":3}\n{\"item_id\":2,\"quantity\":2}\n")

	env.run(t, "table", "create", env.path("items.json"))
	env.run(t, "table", "create", env.path("orders.json"))
	env.run(t, "import", "items", env.path("items.jsonl"))
	env.run(t, "import", "orders", env.path("orders.jsonl"))
	return env
}

func (env *testEnv) path(name string) string {
	return filepath.Join(env.dir, name)
}

func (env *testEnv) write(t *testing.T, name, content string) {
	if err := os.WriteFile(env.path(name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func (env *testEnv) run(t *testing.T, args ...string) string {
	out, err := env.exec(args...)
	if err != nil {
		t.Fatalf("%v failed: %v\n%s", args, err, out)
	}
	return out
}

func (env *testEnv) exec(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--baseDir", env.baseDir, "--config", env.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLITableList(t *testing.T) {
	env := setupTestEnv(t)

	out := env.run(t, "table", "list")
	if !strings.Contains(out, "items") || !strings.Contains(out, "orders") {
		t.Errorf("Expected both tables, got:\n%s", out)
	}
	if !strings.Contains(out, "item_id, quantity") {
		t.Errorf("Expected orders columns, got:\n%s", out)
	}
}

func TestCLIImportSummary(t *testing.T) {
	env := setupTestEnv(t)

	out := env.run(t, "import", "items", env.path("items.jsonl"))
	if !strings.Contains(out, "2 record(s) written to items") {
		t.Errorf("Unexpected import output:\n%s", out)
	}
}

func TestCLIGrid(t *testing.T) {
	env := setupTestEnv(t)

	out := env.run(t, "grid", "item", "items", "-p", "sort=name", "-p", "dir=DESC")
	if !strings.Contains(out, "Price") {
		t.Errorf("Expected column label header, got:\n%s", out)
	}
	if strings.Index(out, "Howdy") > strings.Index(out, "Hello") {
		t.Errorf("Expected Howdy before Hello, got:\n%s", out)
	}
	if !strings.Contains(out, "2 of 2 rows") {
		t.Errorf("Expected row count, got:\n%s", out)
	}

	out = env.run(t, "grid", "item", "items", "--json", "-p", "limit=1")
	if !strings.Contains(out, `"total": 2`) || !strings.Contains(out, `"name": "Hello"`) {
		t.Errorf("Unexpected JSON output:\n%s", out)
	}

	out = env.run(t, "grid", "item", "items", "--metadata")
	if !strings.Contains(out, `"data_url": "/item/items_grid_data"`) {
		t.Errorf("Unexpected metadata output:\n%s", out)
	}
}

func TestCLITree(t *testing.T) {
	env := setupTestEnv(t)

	out := env.run(t, "tree", "item", "item")
	want := []string{"├── Hello", "│   └── 3", "└── Howdy", "    └── 2"}
	for _, line := range want {
		if !strings.Contains(out, line) {
			t.Errorf("Expected %q in tree output:\n%s", line, out)
		}
	}

	out = env.run(t, "tree", "item", "item", "--json", "--node", "2-item-2")
	if !strings.Contains(out, `"text": "2"`) {
		t.Errorf("Unexpected JSON output:\n%s", out)
	}
}

func TestCLIExport(t *testing.T) {
	env := setupTestEnv(t)

	target := env.path("export.jsonl")
	out := env.run(t, "export", "orders", target)
	if !strings.Contains(out, "Exported 2 records") {
		t.Errorf("Unexpected export output:\n%s", out)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Errorf("Expected 2 lines, got %d:\n%s", lines, data)
	}
}

func TestCLIErrors(t *testing.T) {
	env := setupTestEnv(t)

	tests := [][]string{
		{"grid", "nothing", "items"},
		{"grid", "item", "nothing"},
		{"tree", "item", "nothing"},
		{"grid", "item", "items", "-p", "novalue"},
		{"tree", "item", "item", "--node", "bad"},
		{"import", "missing", env.path("items.jsonl")},
		{"table", "create", env.path("missing.json")},
	}

	for _, args := range tests {
		if _, err := env.exec(args...); err == nil {
			t.Errorf("Expected %v to fail", args)
		}
	}
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"sort=name", "dir=ASC", "q=a=b"})
	if err != nil {
		t.Fatalf("parseParams failed: %v", err)
	}
	if params.Get("q") != "a=b" || params.Get("sort") != "name" {
		t.Errorf("Unexpected params: %v", params)
	}
}

func TestCLIPushPull(t *testing.T) {
	env := setupTestEnv(t)

	origin := env.path("origin.git")
	storer := filesystem.NewStorage(osfs.New(origin), cache.NewObjectLRUDefault())
	if _, err := git.Init(storer); err != nil {
		t.Fatalf("Failed to create origin: %v", err)
	}

	env.run(t, "remote", "add", "origin", origin)
	if out := env.run(t, "remote", "list"); !strings.Contains(out, origin) {
		t.Errorf("Expected origin in remote list, got:\n%s", out)
	}
	if out := env.run(t, "push"); !strings.Contains(out, "Pushed to origin") {
		t.Errorf("Expected push confirmation, got:\n%s", out)
	}

	clone := *env
	clone.baseDir = filepath.Join(env.dir, "clone")
	if out := clone.run(t, "--gitUrl", origin, "table", "list"); !strings.Contains(out, "items") {
		t.Errorf("Expected cloned tables, got:\n%s", out)
	}

	env.write(t, "more.jsonl", "{\"name\":\"Hiya\",\"value\":3}\n")
	env.run(t, "import", "items", env.path("more.jsonl"))
	env.run(t, "push", "origin")

	if out := clone.run(t, "pull"); !strings.Contains(out, "Pulled from origin") {
		t.Errorf("Expected pull confirmation, got:\n%s", out)
	}
	if out := clone.run(t, "grid", "item", "items"); !strings.Contains(out, "Hiya") {
		t.Errorf("Expected pulled item in grid, got:\n%s", out)
	}

	if _, err := env.exec("push", "missing"); err == nil {
		t.Error("Expected push to an unknown remote to fail")
	}
}
