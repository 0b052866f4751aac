package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/sign"
	"github.com/ValentinKolb/otsc/lib/value"
	"github.com/ValentinKolb/otsc/rpc/common"
	"github.com/ValentinKolb/otsc/rpc/serializer"
	"github.com/ValentinKolb/otsc/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"time"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter stores all data needed to send requests of one protocol generation
// Used by the rpcStore with composition pattern
type rpcClientAdapter struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
	operations *common.OperationTable
	signer     sign.Signer
	decoder    value.Decoder
	metrics    *clientMetrics
	now        func() time.Time
}

// invokeRPCRequest is the helper used by all client methods to send requests.
// It resolves the operation path of the configured generation, serializes and signs
// the request, sends it and decodes the response. The returned response is nil for
// every error; errors belong to the apierr taxonomy.
func (a *rpcClientAdapter) invokeRPCRequest(ctx context.Context, req *common.Message) (*common.Message, *transport.Response, error) {
	start := time.Now()
	resp, raw, err := a.roundTrip(ctx, req)
	a.metrics.observe(req.Op, start, err)
	return resp, raw, err
}

func (a *rpcClientAdapter) roundTrip(ctx context.Context, req *common.Message) (*common.Message, *transport.Response, error) {
	path, ok := a.operations.Path(req.Op, a.config.Generation)
	if !ok {
		return nil, nil, &apierr.LocalValidationError{
			Code:    apierr.CodeUnsupportedOperation,
			Message: fmt.Sprintf("%s is not available in protocol generation %s", req.Op, a.config.Generation),
		}
	}

	// Serialize and sign the request
	treq, err := a.buildRequest(path, req)
	if err != nil {
		return nil, nil, err
	}

	// Send the request
	raw, err := a.transport.Send(ctx, treq)
	if err != nil {
		te := transportError(err)
		Logger.Warningf("%s to %s failed (timeout=%t): %v", req.Op, te.Host, te.Timeout, te.Err)
		return nil, nil, te
	}

	// Check if the response is an error response
	if err := classifyResponse(req.Op, raw, a.serializer); err != nil {
		Logger.Debugf("%s answered with status %d: %v", req.Op, raw.StatusCode, err)
		return nil, raw, err
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := a.serializer.DeserializeResponse(req.Op, raw.Body, resp); err != nil {
		return nil, raw, malformed(req.Op, raw, err)
	}
	return resp, raw, nil
}

// buildRequest signs the request the way the generation expects: parameter lists for
// the legacy generation, x-ots-* headers over the body otherwise.
func (a *rpcClientAdapter) buildRequest(path string, req *common.Message) (transport.Request, error) {
	if ps, ok := a.serializer.(serializer.IParamSerializer); ok && a.config.Generation == common.GenerationLegacy {
		params, err := ps.RequestParams(*req)
		if err != nil {
			return transport.Request{}, apierr.InvalidCause(err, "%s request", req.Op)
		}
		signed, err := a.signer.SignParams(path, params, a.now())
		if err != nil {
			return transport.Request{}, apierr.InvalidCause(err, "signing %s", req.Op)
		}
		Logger.Debugf("%s string to sign: %q", req.Op, sign.ParamStringToSign(path, signed.Params[:len(signed.Params)-1]))
		return transport.Request{Path: path, ContentType: ps.ContentType(), Body: []byte(signed.Encode())}, nil
	}

	body, err := a.serializer.SerializeRequest(*req)
	if err != nil {
		return transport.Request{}, apierr.InvalidCause(err, "%s request", req.Op)
	}
	signed, err := a.signer.SignHeaders(path, body, a.now())
	if err != nil {
		return transport.Request{}, apierr.InvalidCause(err, "signing %s", req.Op)
	}
	Logger.Debugf("%s %d byte body signed with %s", req.Op, len(body), a.signer.SignatureMethod)
	return transport.Request{Path: path, Header: signed.Header(), ContentType: a.serializer.ContentType(), Body: body}, nil
}
