// Package cmd implements the command-line interface of otsc. It provides a
// hierarchical command structure for talking to the table service as a client
// and for running the local protocol emulator.
//
// The package is organized into several subpackages:
//
//   - table: Commands for tables and table groups (create, delete, list, meta)
//   - rows: Commands for row operations (get, put, del, range, multi row and batch) and the perf benchmark
//   - tx: Commands for transactions (start, commit, abort)
//   - sign: Offline signing of requests for both protocol generations
//   - serve: Commands for starting and configuring the emulator
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See otsc -help for a list of all commands.
package cmd
