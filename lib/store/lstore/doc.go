// Package lstore implements a local, in-memory typed table engine. It works on wire
// rows (row.Row, value.Value) instead of host values, which makes it the storage
// layer of the protocol emulator in rpc/server: whatever a client encodes is stored
// and echoed back exactly as the remote service would do it.
//
// Key Features:
//   - Table groups and tables with typed, ordered primary keys
//   - Primary key meta validation (names, order and kinds)
//   - Put checking modes (NO, INSERT, UPDATE)
//   - Row reads with the service's column echo rule: with requested columns only the
//     requested names (primary key components included) come back as columns
//   - Range scans over the component following a fixed key prefix, with INF_MIN/INF_MAX
//     bounds, reverse order, limits and opaque continuation tokens
//   - Single-use transactions whose writes are buffered until commit
//
// Implementation Details:
//
//   - Tables, table groups and open transactions live in xsync.MapOf instances, so
//     DDL and transaction bookkeeping never block each other.
//
//   - Each table keeps its rows in a slice sorted by primary key and guarded by a
//     sync.RWMutex. Point operations use binary search, scans iterate the slice.
//
//   - All failures are *apierr.ServiceError values carrying the vendor code, ready to be
//     returned to a client as is.
//
// Thread Safety:
//
//	All Engine methods are safe for concurrent use.
package lstore
