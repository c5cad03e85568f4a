// Package store defines the document store abstraction a load job writes to.
//
// Key Components:
//
//   - IStore: opens an IConnection to one database, given ConnectParams
//     (address, database, credentials and the auth database they live in).
//
//   - IConnection: hands out ICollection handles and is closed once the job
//     is done.
//
//   - ICollection: the operations a load job needs. The collection is dropped
//     and recreated, documents are saved one at a time with an AckLevel,
//     and the stored count is read back for reconciliation. FindOne serves
//     connection probes.
//
// Errors follow the common package: connection failures are
// common.ErrConnection, write failures common.ErrWrite. Writes that may
// succeed when retried (network hiccups, timeouts) are marked temporary.
//
// Implementations:
//
//   - Memory Store (lstore): documents kept in process memory, useful for tests
//     and dry runs. Available in "github.com/ValentinKolb/dLoad/lib/store/lstore".
//
//   - Bolt Store (bstore): one bbolt file per database in a data directory.
//     Available in "github.com/ValentinKolb/dLoad/lib/store/bstore".
//
//   - Mongo Store (mstore): a MongoDB server or replica set, with ack levels
//     mapped to write concerns. Available in "github.com/ValentinKolb/dLoad/lib/store/mstore".
//
// The shared conformance suite in the testing subpackage is run against every
// implementation.
package store
