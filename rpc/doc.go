// Package rpc provides the protocol layer between otsc clients and the table
// service. It turns ITableStore calls into signed requests, sends them, and maps
// the answers back into values and errors.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures used across the RPC system, including the
//     Message protocol, the operation table per protocol generation, the client and
//     server configuration, and logging.
//
//   - transport: Network communication abstractions. The http implementation adds
//     round robin endpoints, a DNS cache and retries on transport failures.
//
//   - serializer: The body codecs of both generations (protobuf framing for 2013,
//     form parameters with XML results for legacy).
//
//   - client: The ITableStore implementation that validates, signs and sends requests.
//
//   - server: An in-memory emulator of the service that verifies signatures and
//     answers both generations from one table engine.
package rpc
