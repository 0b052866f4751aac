// Package client implements the RPC client of the table storage service.
// It provides an implementation of the store.ITableStore interface that signs every
// request, sends it through the configured transport and maps the answer into host
// values or an apierr error.
//
// The package focuses on:
//   - One remote call per method, with local validation before any network traffic
//   - Integration with the transport and serialization layers
//   - Error classification into the apierr taxonomy (transport, service, malformed
//     response, local validation)
//   - Per operation request, error and latency metrics in the VictoriaMetrics default set
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing the
//     store.ITableStore interface. The serializer decides the protocol generation and
//     must match ClientConfig.Generation.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  AccessKeyID:     "id",
//	  AccessKeySecret: "secret",
//	  Endpoints:       []string{"http://service.ots.aliyun.com"},
//	}
//
//	// Create store client
//	st, _ := client.NewRPCStore(config, http.NewHttpClientTransport(), serializer.NewProtobufSerializer())
//
//	// Use the store
//	_ = st.PutRow(ctx, "users", row.One("uid", "mk2"), row.One("age", 28), store.PutOptions{})
//	r, _ := st.GetRow(ctx, "users", row.One("uid", "mk2"), store.GetOptions{})
//
// Error handling:
//
//   - A response with a status other than 200 is decoded as an error body and returned
//     as *apierr.ServiceError carrying the request id and host id of the response.
//   - A success response whose body cannot be decoded is an *apierr.MalformedResponseError.
//   - A request that never got an answer is an *apierr.TransportError. If it timed out
//     the outcome is unknown and the write may have been applied.
//
// Thread Safety:
//
//	The client is thread-safe and can be used concurrently from multiple goroutines
//	without additional synchronization.
package client
