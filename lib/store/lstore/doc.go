// Package lstore implements an in-memory document store based on the
// store.IStore interface. Data is kept in process memory and is lost when the
// Store value is discarded.
//
// Databases and collections are created on first use, like on a MongoDB
// server. Documents are stored BSON-encoded under a random UUID, so stored
// documents are isolated from later changes by the caller. FindOne returns the
// oldest document of a collection.
//
// Authentication is off until a user is registered with AddUser. From then
// on every connection must name a registered user of its auth database and
// the matching password, otherwise Connect fails with common.ErrConnection.
//
// Thread Safety:
//
//	All operations are safe for concurrent use. Databases and collections live
//	in xsync maps; each collection guards its documents with its own RWMutex.
//
// Usage Example:
//
//	s := lstore.NewLocalStore()
//	s.AddUser("admin", "loader", "secret")
//	conn, err := s.Connect(ctx, store.ConnectParams{
//		Database: "test", Username: "loader", Password: "secret", AuthDB: "admin",
//	})
//
// The store is used for dry runs of the CLI and by the loader tests.
package lstore
