// Package mstore implements the store interfaces for MongoDB using the
// official Go driver.
//
// Connect pings the primary before returning, so unresolved hosts and failed
// authentication show up as common.ErrConnection right away. Credentials are
// checked against ConnectParams.AuthDB. MongoDB creates databases on first
// write, so a missing database is not an error.
//
// Ack levels map to write concerns (see WriteConcern): acknowledged writes
// use w:1, journaled writes j:true, majority writes w:majority.
// Unacknowledged writes return as soon as the message is sent.
//
// Write errors caused by the network or by timeouts are marked temporary and
// may be retried by the caller.
package mstore
