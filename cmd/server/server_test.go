package main

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nickyhof/easyext"
	"github.com/nickyhof/easyext/config"
	"github.com/nickyhof/easyext/ctxlog"
	"github.com/nickyhof/easyext/internal/shoptest"
	"github.com/nickyhof/easyext/web"
)

const testConfig = `
controller "item" {
  grid "items" {
    column "name" {}
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

func setupTestServer(t *testing.T) (*Server, func()) {
	store := shoptest.New(t)
	items := shoptest.Items(t, store, "Hello", "Howdy")
	shoptest.Insert(t, store, "orders", map[string]any{"item_id": items[0], "quantity": 3})

	cfg, err := config.Parse([]byte(testConfig), "test.hcl")
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	logger := ctxlog.New("error", "text", io.Discard)
	server := NewServer(easyext.Handler(store, cfg, logger), logger)
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	return server, func() {
		server.Stop()
	}
}

func getJSON(t *testing.T, url string, v any) int {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("Failed to GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp.StatusCode
}

func TestServerStartStop(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	if server.Addr() == "" {
		t.Error("Expected non-empty address")
	}
}

func TestServerStopBeforeStart(t *testing.T) {
	logger := ctxlog.New("error", "text", io.Discard)
	server := NewServer(web.NewMux(nil, logger), logger)
	if err := server.Stop(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if server.Addr() != "" {
		t.Errorf("Expected empty address, got %q", server.Addr())
	}
}

func TestServerGridData(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	var data struct {
		Total   int              `json:"total"`
		Records []map[string]any `json:"records"`
	}
	status := getJSON(t, "http://"+server.Addr()+"/item/items_grid_data?sort=name&dir=DESC", &data)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if data.Total != 2 {
		t.Errorf("Expected total 2, got %d", data.Total)
	}
	if len(data.Records) != 2 || data.Records[0]["name"] != "Howdy" {
		t.Errorf("Expected Howdy first, got %v", data.Records)
	}
}

func TestServerGridMetadata(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	var md struct {
		DataURL string `json:"data_url"`
	}
	getJSON(t, "http://"+server.Addr()+"/item/items_grid_metadata", &md)

	want := "http://" + server.Addr() + "/item/items_grid_data"
	if md.DataURL != want {
		t.Errorf("Expected data_url %q, got %q", want, md.DataURL)
	}
}

func TestServerTreeData(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	var nodes []map[string]any
	getJSON(t, "http://"+server.Addr()+"/item/item_tree_data?node=1-item-1", &nodes)

	if len(nodes) != 1 {
		t.Fatalf("Expected 1 node, got %d", len(nodes))
	}
	if nodes[0]["text"] != "3" {
		t.Errorf("Expected text 3, got %v", nodes[0]["text"])
	}
	if nodes[0]["leaf"] != true {
		t.Errorf("Expected leaf node, got %v", nodes[0])
	}
}

func TestServerMalformedNode(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	status := getJSON(t, "http://"+server.Addr()+"/item/item_tree_data?node=nope", &resp)
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", status)
	}
	if resp.Success || resp.Error == "" {
		t.Errorf("Expected failure response, got %+v", resp)
	}
}

func TestOpenStoreMemory(t *testing.T) {
	logger := ctxlog.New("error", "text", io.Discard)

	store, closeStore, err := openStore(options{database: "shop"}, logger)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	if _, err := store.Lookup("item"); err == nil {
		t.Error("Expected unknown entity in an empty store")
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger := newLogger(options{logLevel: "info", logFormat: "json", logFile: path})
	logger.Info("hello from test")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello from test"`) {
		t.Errorf("Expected log line in file, got %q", data)
	}
}
