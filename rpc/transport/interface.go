package transport

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/otsc/rpc/common"
	"net/http"
)

// --------------------------------------------------------------------------
// Exchange
// --------------------------------------------------------------------------

// Request is a signed request as it leaves the client. Path is the canonical URI
// ("/GetRow"), Header carries the signature headers of the 2013 generation.
type Request struct {
	Path        string
	Header      http.Header
	ContentType string
	Body        []byte
}

// Response is the raw answer of the service. Host names the endpoint that answered.
type Response struct {
	Host       string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// SendError is returned by IRPCClientTransport.Send if no complete response was
// received. Header holds the response headers if they arrived before the failure.
type SendError struct {
	Host   string
	Header http.Header
	Err    error
}

func (e *SendError) Error() string { return fmt.Sprintf("request to %s failed: %v", e.Host, e.Err) }

func (e *SendError) Unwrap() error { return e.Err }

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc handles one request. Operation is the last path segment of the
// request URI. The returned Response is written as is; Host is ignored.
type ServerHandleFunc func(ctx context.Context, operation string, req Request) Response

// IRPCServerTransport is the interface for the server side transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called for every request that is received
	RegisterHandler(handler ServerHandleFunc)
	// Handler returns the routing handler of config without listening
	Handler(config common.ServerConfig) http.Handler
	// Listen starts the transport layer and listens for incoming requests
	Listen(config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to one of the endpoints and returns the response,
	// whatever its status code. Errors are of type *SendError.
	Send(ctx context.Context, req Request) (*Response, error)
	// Close closes the transport connection
	Close() error
}
