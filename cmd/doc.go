// Package cmd implements the command-line interface of dLoad.
//
// The package is organized into several subpackages:
//
//   - load: Generate documents and load them into a store, with a progress bar
//   - ping: Test the connection to a store without writing
//   - generate: Print generated documents as extended JSON
//   - util: Shared utilities for flags and configuration (internal use)
//
// Every flag can also be set through an environment variable DLOAD_<FLAG>
// (e.g. DLOAD_TARGET_DB=test), a .env file or a configuration file.
//
// See dload -help for a list of all commands.
package cmd
