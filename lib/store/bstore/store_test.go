package bstore

import (
	"context"
	"errors"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/ValentinKolb/dLoad/lib/document"
	"github.com/ValentinKolb/dLoad/lib/store"
	storetesting "github.com/ValentinKolb/dLoad/lib/store/testing"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBoltStore(t *testing.T) {
	storetesting.RunStoreTests(t, "BoltStore", func(t *testing.T) (store.IStore, store.ConnectParams) {
		return NewBoltStore(t.TempDir()), store.ConnectParams{Database: "test", Timeout: time.Second}
	})
}

// TestPersistence tests that documents survive reopening the database
func TestPersistence(t *testing.T) {
	ctx := context.Background()
	s := NewBoltStore(filepath.Join(t.TempDir(), "nested", "data"))
	params := store.ConnectParams{Database: "persist", Timeout: time.Second}

	conn, err := s.Connect(ctx, params)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	first := document.New().Set("n", document.Integer(1))
	coll := conn.Collection("c")
	for i := int64(1); i <= 3; i++ {
		if err := coll.Save(ctx, document.New().Set("n", document.Integer(i)), store.AckJournaled); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	if err := conn.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(s.Path("persist")); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	conn, err = s.Connect(ctx, params)
	if err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	defer conn.Close(ctx)

	coll = conn.Collection("c")
	if n, err := coll.Count(ctx); err != nil || n != 3 {
		t.Errorf("Count = %d, %v; want 3", n, err)
	}
	got, found, err := coll.FindOne(ctx)
	if err != nil || !found {
		t.Fatalf("FindOne = %v, %v", found, err)
	}
	if !first.Equal(got) {
		t.Errorf("FindOne returned %s, want the first document %s", got, first)
	}
}

// TestInvalidDatabaseNames tests that database names cannot escape the data directory
func TestInvalidDatabaseNames(t *testing.T) {
	s := NewBoltStore(t.TempDir())
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		_, err := s.Connect(context.Background(), store.ConnectParams{Database: name})
		if !errors.Is(err, common.ErrConnection) {
			t.Errorf("Connect(%q) error = %v, want ConnectionError", name, err)
		}
	}
}

// TestLockTimeout tests that a second connection to a locked file gives up
func TestLockTimeout(t *testing.T) {
	ctx := context.Background()
	s := NewBoltStore(t.TempDir())
	params := store.ConnectParams{Database: "locked", Timeout: 50 * time.Millisecond}

	conn, err := s.Connect(ctx, params)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Close(ctx)

	if _, err := s.Connect(ctx, params); !errors.Is(err, common.ErrConnection) {
		t.Errorf("second Connect error = %v, want ConnectionError", err)
	}
}

// TestReadOnlyMissingDatabase tests that a read-only connection creates neither
// the data directory nor the database file
func TestReadOnlyMissingDatabase(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	s := NewBoltStore(dir)

	conn, err := s.Connect(ctx, store.ConnectParams{Database: "missing", Timeout: time.Second, ReadOnly: true})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	coll := conn.Collection("presidents")
	if _, found, err := coll.FindOne(ctx); err != nil || found {
		t.Errorf("FindOne = %v, %v; want empty", found, err)
	}
	if n, err := coll.Count(ctx); err != nil || n != 0 {
		t.Errorf("Count = %d, %v; want 0", n, err)
	}
	if err := coll.Create(ctx); !errors.Is(err, common.ErrWrite) {
		t.Errorf("Create error = %v, want WriteError", err)
	}
	if err := conn.Close(ctx); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("data directory was created (stat error %v)", err)
	}
}

// TestReadOnlyExistingDatabase tests reads and rejected writes on an existing file
func TestReadOnlyExistingDatabase(t *testing.T) {
	ctx := context.Background()
	s := NewBoltStore(t.TempDir())
	params := store.ConnectParams{Database: "existing", Timeout: time.Second}

	conn, err := s.Connect(ctx, params)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	want := document.New().Set("name", document.String("Lincoln"))
	if err := conn.Collection("presidents").Save(ctx, want, store.AckAcknowledged); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := conn.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	before, err := os.Stat(s.Path("existing"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}

	params.ReadOnly = true
	conn, err = s.Connect(ctx, params)
	if err != nil {
		t.Fatalf("read-only Connect failed: %v", err)
	}
	coll := conn.Collection("presidents")
	got, found, err := coll.FindOne(ctx)
	if err != nil || !found || !want.Equal(got) {
		t.Errorf("FindOne = %s, %v, %v; want %s", got, found, err, want)
	}
	if err := coll.Save(ctx, want, store.AckAcknowledged); !errors.Is(err, common.ErrWrite) {
		t.Errorf("Save error = %v, want WriteError", err)
	}
	if err := coll.Drop(ctx); !errors.Is(err, common.ErrWrite) {
		t.Errorf("Drop error = %v, want WriteError", err)
	}
	if err := conn.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	after, err := os.Stat(s.Path("existing"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) || after.Size() != before.Size() {
		t.Errorf("database file changed by a read-only connection")
	}
}
