package ps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
)

// newOrigin creates a bare repository to push to and clone from.
func newOrigin(t *testing.T) string {
	dir := t.TempDir()
	storer := filesystem.NewStorage(osfs.New(dir), cache.NewObjectLRUDefault())
	if _, err := git.Init(storer); err != nil {
		t.Fatalf("Failed to create origin: %v", err)
	}
	return dir
}

func TestPushAndClone(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, p *Persistence) {
		originDir := newOrigin(t)

		if _, err := p.SaveRecord("shop", "items", map[string][]byte{"1": []byte("one")}, testIdentity); err != nil {
			t.Fatalf("SaveRecord failed: %v", err)
		}
		if err := p.AddRemote(DefaultRemote, originDir); err != nil {
			t.Fatalf("AddRemote failed: %v", err)
		}
		if err := p.Push("", nil); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
		// nothing new to push
		if err := p.Push(DefaultRemote, nil); err != nil {
			t.Fatalf("Second push failed: %v", err)
		}

		clone, err := NewFilePersistence(t.TempDir(), &originDir)
		if err != nil {
			t.Fatalf("Clone failed: %v", err)
		}
		if data, ok := clone.GetRecord("shop", "items", "1"); !ok || string(data) != "one" {
			t.Errorf("Expected cloned record, got %q", data)
		}
	})
}

func TestPullFastForward(t *testing.T) {
	originDir := newOrigin(t)

	writer, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	if err := writer.AddRemote(DefaultRemote, originDir); err != nil {
		t.Fatalf("AddRemote failed: %v", err)
	}
	saveRecord(t, writer, "1", "one")
	if err := writer.Push("", nil); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	reader, err := NewFilePersistence(t.TempDir(), &originDir)
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	saveRecord(t, writer, "2", "two")
	if err := writer.Push("", nil); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if err := reader.Pull("", nil); err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if data, ok := reader.GetRecord("shop", "items", "2"); !ok || string(data) != "two" {
		t.Errorf("Expected pulled record, got %q", data)
	}

	// already up to date
	if err := reader.Pull("", nil); err != nil {
		t.Fatalf("Second pull failed: %v", err)
	}
}

// newFileOrigin creates a store on disk holding one record.
func newFileOrigin(t *testing.T) (*Persistence, string) {
	dir := t.TempDir()
	origin, err := NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to create origin: %v", err)
	}
	saveRecord(t, origin, "1", "one")
	return origin, dir
}

func saveRecord(t *testing.T, p *Persistence, key, value string) {
	if _, err := p.SaveRecord("shop", "items", map[string][]byte{key: []byte(value)}, testIdentity); err != nil {
		t.Fatalf("SaveRecord %s failed: %v", key, err)
	}
}

func TestFilePersistenceIsCloneable(t *testing.T) {
	_, originDir := newFileOrigin(t)

	if _, err := os.Stat(filepath.Join(originDir, ".git", "config")); err != nil {
		t.Fatalf("Expected repository config to be written: %v", err)
	}

	clone, err := NewFilePersistence(t.TempDir(), &originDir)
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	if data, ok := clone.GetRecord("shop", "items", "1"); !ok || string(data) != "one" {
		t.Errorf("Expected cloned record, got %q", data)
	}

	// reopening keeps working and leaves the config in place
	if _, err := NewFilePersistence(originDir, nil); err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
}

func TestPullIntoEmpty(t *testing.T) {
	_, originDir := newFileOrigin(t)

	p, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	if err := p.AddRemote(DefaultRemote, originDir); err != nil {
		t.Fatalf("AddRemote failed: %v", err)
	}
	if err := p.Pull("", nil); err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if _, ok := p.GetRecord("shop", "items", "1"); !ok {
		t.Error("Expected pulled record")
	}
}

func TestPullDiverged(t *testing.T) {
	origin, originDir := newFileOrigin(t)

	p, err := NewFilePersistence(t.TempDir(), &originDir)
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	saveRecord(t, origin, "2", "two")
	saveRecord(t, p, "3", "three")

	if err := p.Pull("", nil); !errors.Is(err, ErrDiverged) {
		t.Errorf("Expected ErrDiverged, got %v", err)
	}
}

func TestRemotes(t *testing.T) {
	p, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	if err := p.AddRemote("backup", "https://example.com/shop.git"); err != nil {
		t.Fatalf("AddRemote failed: %v", err)
	}
	if err := p.AddRemote("backup", "https://example.com/other.git"); err == nil {
		t.Error("Expected duplicate remote to fail")
	}

	remotes, err := p.Remotes()
	if err != nil {
		t.Fatalf("Remotes failed: %v", err)
	}
	if len(remotes) != 1 || remotes[0].Name != "backup" || remotes[0].URLs[0] != "https://example.com/shop.git" {
		t.Errorf("Unexpected remotes %+v", remotes)
	}

	if err := p.Push("missing", nil); err == nil {
		t.Error("Expected push to unknown remote to fail")
	}
}

func TestAuthMethod(t *testing.T) {
	if m, err := (*Auth)(nil).method(); m != nil || err != nil {
		t.Errorf("Expected no auth, got %v %v", m, err)
	}
	if m, _ := (&Auth{Token: "secret"}).method(); m == nil || m.Name() != "http-basic-auth" {
		t.Errorf("Expected token auth, got %v", m)
	}
	if m, _ := (&Auth{Username: "u", Password: "p"}).method(); m == nil {
		t.Error("Expected basic auth")
	}
	if _, err := (&Auth{KeyPath: t.TempDir() + "/missing"}).method(); err == nil {
		t.Error("Expected missing key to fail")
	}
}
