// Package transport defines the interfaces between the RPC client, the protocol
// emulator and the network. Implementations move signed request bodies and headers,
// they do not look into them.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management, endpoint selection and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and routes them to a handler by operation name.
//
//   - Request / Response: the exchanged data, including status code and headers,
//     since the service reports errors and correlation ids through them.
//
//   - SendError: the error of a request that never got a response.
package transport
