// Package bstore implements a document store on top of bbolt.
//
// Each database is a file named <database>.db in the data directory, each
// collection a bucket. Documents are BSON-encoded and keyed by a version 7
// UUID, so the cursor order of a bucket is the insertion order.
//
// Every Save commits its own transaction. bbolt fsyncs on commit, so a
// returned Save is durable whatever AckLevel was requested. Credentials are
// not supported and are ignored with a warning.
//
// A bbolt file can only be opened by one process at a time; ConnectParams.Timeout
// bounds how long Connect waits for the file lock.
package bstore
