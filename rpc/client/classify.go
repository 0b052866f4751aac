package client

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/sign"
	"github.com/ValentinKolb/otsc/rpc/common"
	"github.com/ValentinKolb/otsc/rpc/serializer"
	"github.com/ValentinKolb/otsc/rpc/transport"
	"net"
	"net/http"
)

// serverID returns the correlation id of a response
func serverID(resp *transport.Response) string {
	if resp == nil || resp.Header == nil {
		return ""
	}
	return apierr.ServerID(resp.Header.Get(sign.HeaderRequestID), resp.Header.Get(sign.HeaderHostID))
}

// transportError wraps an error of IRPCClientTransport.Send. A timeout means the
// outcome of the request is unknown: it may have been applied.
func transportError(err error) *apierr.TransportError {
	te := &apierr.TransportError{Err: err}
	var sendErr *transport.SendError
	if errors.As(err, &sendErr) {
		te.Host = sendErr.Host
		te.Err = sendErr.Err
		te.ServerID = serverID(&transport.Response{Header: sendErr.Header})
	}
	var netErr net.Error
	te.Timeout = errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
	return te
}

// classifyResponse maps a received response to nil (success) or to a ServiceError
// or MalformedResponseError.
func classifyResponse(op common.Operation, resp *transport.Response, s serializer.IRPCSerializer) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	id := serverID(resp)
	e, err := s.DeserializeError(resp.Body)
	if err != nil {
		return &apierr.MalformedResponseError{
			Operation: op.String(),
			ServerID:  id,
			Err:       fmt.Errorf("status %d with undecodable error body: %w", resp.StatusCode, err),
		}
	}
	return &apierr.ServiceError{Code: e.Code, Message: e.Message, ServerID: id}
}

// malformed wraps a decoding error of a success response
func malformed(op common.Operation, resp *transport.Response, err error) *apierr.MalformedResponseError {
	return &apierr.MalformedResponseError{Operation: op.String(), ServerID: serverID(resp), Err: err}
}
