// Package server implements a protocol emulator of the table storage service.
// It answers both protocol generations from one in-memory lstore.Engine, so the
// client can be exercised end to end without a real service.
//
// The package focuses on:
//   - Signature verification of both signing variants against configured credentials
//   - Routing of wire operation names through the common.OperationTable
//   - Adapter pattern to decouple the table semantics from the RPC mechanisms
//   - Service shaped error responses with x-ots-requestid and x-ots-hostid headers
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters, with
//     the Handle method that processes a decoded request against an ITableEngine.
//
//   - NewTableStoreServerAdapter: Factory function creating the adapter that maps
//     every operation onto the engine. Multi row operations report per row results;
//     the row ceilings are enforced before the engine is touched.
//
//   - NewRPCServer: Factory function creating a configured emulator with the
//     specified transport.
//
// The generation of a request is chosen by its content type: form encoded bodies are
// legacy requests signed in their parameters, everything else is a 2013 request
// signed in the x-ots-* headers. Failed signature checks answer OTSAuthFailed with
// status 403.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Endpoint:    "127.0.0.1:8080",
//	  Credentials: map[string]string{"id": "secret"},
//	  LogLevel:    "info",
//	}
//
//	s := server.NewRPCServer(config, http.NewHttpServerTransport())
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	The emulator is thread-safe and handles concurrent requests. Transactions are
//	isolated by the engine. Serve should be called only once.
package server
