// Package store defines the interface for interacting with a typed table store and the
// schema types shared by its implementations.
//
// Key Components:
//
//   - ITableStore Interface: the caller facing abstraction over a table store. All
//     methods take a context.Context, map to exactly one service call and return
//     errors from the lib/apierr taxonomy, so callers can branch on a stable error code
//     without knowing which implementation they talk to.
//
//   - Options: PutOptions, GetOptions and DeleteOptions carry the optional parts of a
//     call (checking mode, requested columns, transaction handle).
//
//   - Schema: TableMeta, ViewMeta and ColumnSchema describe tables for CreateTable and
//     GetTableMeta.
//
// Implementations:
//
//   - Remote Store (rpc/client): signs and sends requests to the table storage service
//     over HTTP. Available in the "github.com/ValentinKolb/otsc/rpc/client" package.
//
//   - Local Engine (lstore): an in-memory typed table engine working on wire rows. It
//     is not an ITableStore; it backs the emulator in rpc/server, which speaks the same
//     protocol as the service. Available in the "github.com/ValentinKolb/otsc/lib/store/lstore"
//     package.
package store
