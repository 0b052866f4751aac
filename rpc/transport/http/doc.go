// Package http implements the transport interfaces on top of net/http. The table
// storage service is only reachable over HTTP, so this is the only transport.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. It selects endpoints
//     round-robin, bounds every call by the configured timeout and keeps a pool of
//     idle connections per endpoint.
//
//   - dnsCache: resolved host addresses are kept in an ARC cache for the configured
//     DNS cache time and reused by the dialer.
//
//   - httpServerTransport: Implements IRPCServerTransport. It routes POST /{operation}
//     to the registered handler and optionally serves Prometheus metrics.
//
// Thread Safety:
//
//	The client transport is safe for concurrent use after Connect. The round-robin
//	counter is updated atomically.
package http
