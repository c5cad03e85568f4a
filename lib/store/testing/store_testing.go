package testing

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/ValentinKolb/dLoad/lib/document"
	"github.com/ValentinKolb/dLoad/lib/store"
	"sync"
	"testing"
)

// StoreFactory returns a fresh store together with parameters that connect
// to an empty database of it
type StoreFactory func(t *testing.T) (store.IStore, store.ConnectParams)

// RunStoreTests runs the conformance suite for an IStore implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("DropCreateCount", func(t *testing.T) {
			testDropCreateCount(t, connect(t, factory))
		})

		t.Run("SaveFindOne", func(t *testing.T) {
			testSaveFindOne(t, connect(t, factory))
		})

		t.Run("FindOneEmpty", func(t *testing.T) {
			testFindOneEmpty(t, connect(t, factory))
		})

		t.Run("AckLevels", func(t *testing.T) {
			testAckLevels(t, connect(t, factory))
		})

		t.Run("CollectionIsolation", func(t *testing.T) {
			testCollectionIsolation(t, connect(t, factory))
		})

		t.Run("DropRemovesDocuments", func(t *testing.T) {
			testDropRemovesDocuments(t, connect(t, factory))
		})

		t.Run("ConcurrentSave", func(t *testing.T) {
			testConcurrentSave(t, connect(t, factory))
		})

		t.Run("SaveAfterClose", func(t *testing.T) {
			testSaveAfterClose(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func connect(t *testing.T, factory StoreFactory) store.IConnection {
	t.Helper()
	s, params := factory(t)
	conn, err := s.Connect(context.Background(), params)
	if err != nil {
		t.Fatalf("Connect(%s) failed: %v", params, err)
	}
	t.Cleanup(func() {
		_ = conn.Close(context.Background())
	})
	return conn
}

func freshCollection(t *testing.T, conn store.IConnection, name string) store.ICollection {
	t.Helper()
	ctx := context.Background()
	coll := conn.Collection(name)
	if err := coll.Drop(ctx); err != nil {
		t.Fatalf("Drop(%s) failed: %v", name, err)
	}
	if err := coll.Create(ctx); err != nil {
		t.Fatalf("Create(%s) failed: %v", name, err)
	}
	return coll
}

func expectCount(t *testing.T, coll store.ICollection, want int64) {
	t.Helper()
	got, err := coll.Count(context.Background())
	if err != nil {
		t.Fatalf("Count(%s) failed: %v", coll.Name(), err)
	}
	if got != want {
		t.Errorf("Count(%s) = %d, want %d", coll.Name(), got, want)
	}
}

func sampleDocument(i int) *document.Document {
	return document.New().
		Set("name", document.String(fmt.Sprintf("doc-%d", i))).
		Set("index", document.Integer(int64(i))).
		Set("ratio", document.Float(0.5)).
		Set("active", document.Boolean(i%2 == 0)).
		Set("address", document.Nested(document.New().
			Set("street", document.String("main")).
			Set("number", document.Integer(7)))).
		Set("tags", document.Sequence(document.String("a"), document.String("bc")))
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testDropCreateCount(t *testing.T, conn store.IConnection) {
	ctx := context.Background()
	coll := freshCollection(t, conn, "count")

	if coll.Name() != "count" {
		t.Errorf("Name() = %q, want %q", coll.Name(), "count")
	}
	expectCount(t, coll, 0)

	for i := 0; i < 10; i++ {
		if err := coll.Save(ctx, sampleDocument(i), store.AckAcknowledged); err != nil {
			t.Fatalf("Save(%d) failed: %v", i, err)
		}
	}
	expectCount(t, coll, 10)

	// creating an existing collection keeps its documents
	if err := coll.Create(ctx); err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	expectCount(t, coll, 10)

	if err := coll.Drop(ctx); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if err := coll.Drop(ctx); err != nil {
		t.Errorf("dropping a missing collection should succeed, got %v", err)
	}
	expectCount(t, coll, 0)
}

func testSaveFindOne(t *testing.T, conn store.IConnection) {
	ctx := context.Background()
	coll := freshCollection(t, conn, "find")

	want := sampleDocument(1)
	if err := coll.Save(ctx, want, store.AckAcknowledged); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, found, err := coll.FindOne(ctx)
	if err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if !found {
		t.Fatalf("FindOne found nothing after Save")
	}
	if !want.Equal(got) {
		t.Errorf("FindOne mismatch:\nwant %s\ngot  %s", want, got)
	}
}

func testFindOneEmpty(t *testing.T, conn store.IConnection) {
	ctx := context.Background()

	coll := freshCollection(t, conn, "empty")
	if _, found, err := coll.FindOne(ctx); err != nil || found {
		t.Errorf("FindOne on empty collection = found %v, err %v", found, err)
	}

	missing := conn.Collection("never-created")
	if _, found, err := missing.FindOne(ctx); err != nil || found {
		t.Errorf("FindOne on missing collection = found %v, err %v", found, err)
	}
}

func testAckLevels(t *testing.T, conn store.IConnection) {
	ctx := context.Background()
	coll := freshCollection(t, conn, "ack")

	levels := []store.AckLevel{store.AckAcknowledged, store.AckJournaled, store.AckMajority}
	for i, ack := range levels {
		if err := coll.Save(ctx, sampleDocument(i), ack); err != nil {
			t.Errorf("Save with %s failed: %v", ack, err)
		}
	}
	expectCount(t, coll, int64(len(levels)))

	// unacknowledged writes give no guarantee on visibility, only on errors
	if err := coll.Save(ctx, sampleDocument(99), store.AckUnacknowledged); err != nil {
		t.Errorf("Save with %s failed: %v", store.AckUnacknowledged, err)
	}
}

func testCollectionIsolation(t *testing.T, conn store.IConnection) {
	ctx := context.Background()
	a := freshCollection(t, conn, "iso-a")
	b := freshCollection(t, conn, "iso-b")

	for i := 0; i < 3; i++ {
		if err := a.Save(ctx, sampleDocument(i), store.AckAcknowledged); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	expectCount(t, a, 3)
	expectCount(t, b, 0)

	if err := b.Drop(ctx); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	expectCount(t, a, 3)
}

func testDropRemovesDocuments(t *testing.T, conn store.IConnection) {
	ctx := context.Background()
	coll := freshCollection(t, conn, "drop")

	for i := 0; i < 5; i++ {
		if err := coll.Save(ctx, sampleDocument(i), store.AckAcknowledged); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	coll = freshCollection(t, conn, "drop")
	expectCount(t, coll, 0)
	if _, found, _ := coll.FindOne(ctx); found {
		t.Errorf("FindOne found a document after Drop and Create")
	}
}

func testConcurrentSave(t *testing.T, conn store.IConnection) {
	ctx := context.Background()
	coll := freshCollection(t, conn, "concurrent")

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if err := coll.Save(ctx, sampleDocument(w*perWorker+i), store.AckAcknowledged); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Save failed: %v", err)
	}
	expectCount(t, coll, workers*perWorker)
}

func testSaveAfterClose(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	s, params := factory(t)
	conn, err := s.Connect(ctx, params)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	coll := conn.Collection("closed")

	if err := conn.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err = coll.Save(ctx, sampleDocument(0), store.AckAcknowledged)
	if err == nil {
		t.Fatalf("Save after Close should fail")
	}
	if !errors.Is(err, common.ErrWrite) && !errors.Is(err, common.ErrConnection) {
		t.Errorf("Save after Close error = %v, want WriteError or ConnectionError", err)
	}
}
