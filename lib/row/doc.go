// Package row builds and parses the row shaped parts of table storage requests and
// responses: primary keys, attribute columns, batches and range scans.
//
// Callers describe a row as ordered Items (name, host value, optional declared kind).
// BuildRow and BuildKey encode them into wire NamedValues with the value package,
// keeping primary key order (it is significant to the service). ParseRow turns a
// wire row back into a flat name to value map, honouring the requested column
// filter, and ParseBatch does the same for batch results while keeping the order
// of the request.
//
// Everything in this package is pure: no I/O, no shared state.
package row
