// Package testing provides a conformance suite for store.IStore
// implementations.
//
// Example usage:
//
//	func TestStore(t *testing.T) {
//		storetesting.RunStoreTests(t, "MyStore", func(t *testing.T) (store.IStore, store.ConnectParams) {
//			return mystore.New(), store.ConnectParams{Host: "localhost", Port: 1, Database: "test"}
//		})
//	}
package testing
