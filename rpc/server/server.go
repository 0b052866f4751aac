package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/otsc/lib/apierr"
	"github.com/ValentinKolb/otsc/lib/sign"
	"github.com/ValentinKolb/otsc/lib/store/lstore"
	"github.com/ValentinKolb/otsc/rpc/common"
	"github.com/ValentinKolb/otsc/rpc/serializer"
	"github.com/ValentinKolb/otsc/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"net/http"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
)

var Logger = logger.GetLogger("emulator")

// NewRPCServer creates a new protocol emulator
// It takes a config and a transport as parameters. The emulator answers both protocol
// generations from one in-memory engine; the generation of a request is chosen by
// its content type.
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	if config.HostID == "" {
		config.HostID = "otsc-emulator"
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	// Create the RPC server
	s := &RPCServer{
		config:     config,
		transport:  transport,
		engine:     lstore.NewEngine(),
		adapter:    NewTableStoreServerAdapter(),
		operations: common.NewOperationTable(),
		serializers: map[common.Generation]serializer.IRPCServerSerializer{
			common.Generation2013:   serializer.ForGeneration(common.Generation2013),
			common.GenerationLegacy: serializer.ForGeneration(common.GenerationLegacy),
		},
	}
	s.registerTransportHandler()
	return s
}

// RPCServer is the protocol emulator. Create it with NewRPCServer.
type RPCServer struct {
	config      common.ServerConfig
	transport   transport.IRPCServerTransport
	engine      ITableEngine
	adapter     IRPCServerAdapter
	operations  *common.OperationTable
	serializers map[common.Generation]serializer.IRPCServerSerializer
}

func (s *RPCServer) registerTransportHandler() {
	s.transport.RegisterHandler(s.handle)
}

// handle answers one request. Every response carries a fresh request id and the host
// id of the emulator.
func (s *RPCServer) handle(_ context.Context, operation string, req transport.Request) transport.Response {
	gen := generationOf(req.ContentType)
	ser := s.serializers[gen]

	resp := transport.Response{Header: http.Header{}, StatusCode: http.StatusOK}
	resp.Header.Set(sign.HeaderRequestID, uuid.NewString())
	resp.Header.Set(sign.HeaderHostID, s.config.HostID)
	resp.Header.Set("Content-Type", ser.ContentType())

	// fail writes the error body of err into resp
	fail := func(err error) transport.Response {
		svc := serviceError(err)
		body, serr := ser.SerializeError(common.ErrorMessage{Code: svc.Code, Message: svc.Message})
		if serr != nil {
			Logger.Errorf("failed to serialize error response: %v", serr)
		}
		resp.StatusCode = statusOf(svc.Code)
		resp.Body = body
		countRequest(operation, svc.Code)
		return resp
	}

	// Resolve the operation
	op, ok := s.operations.Lookup(operation, gen)
	if !ok {
		return fail(apierr.NewServiceError(apierr.CodeUnsupportedOperation,
			fmt.Sprintf("Unsupported operation: %s", operation)))
	}

	// Check the signature
	if err := s.authenticate(gen, req); err != nil {
		Logger.Debugf("%s rejected: %v", operation, err)
		return fail(err)
	}

	// Decode the request
	var msg common.Message
	if err := ser.DeserializeRequest(op, req.Body, &msg); err != nil {
		return fail(apierr.NewServiceError(apierr.CodeParameterInvalid, err.Error()))
	}
	msg.Op = op

	// Let the adapter handle the request
	out, err := s.adapter.Handle(&msg, s.engine)
	if err != nil {
		return fail(err)
	}

	// Return result
	body, err := ser.SerializeResponse(*out)
	if err != nil {
		Logger.Errorf("failed to serialize %s response: %v", op, err)
		return fail(apierr.NewServiceError(apierr.CodeInternalServerError, err.Error()))
	}
	resp.Body = body
	countRequest(operation, apierr.CodeOK)
	return resp
}

// authenticate verifies the signature of req with the secret of its access key id.
func (s *RPCServer) authenticate(gen common.Generation, req transport.Request) error {
	authFailed := func(message string) error {
		return apierr.NewServiceError(apierr.CodeAuthFailed, message)
	}

	if gen == common.GenerationLegacy {
		params, err := sign.ParseParams(string(req.Body))
		if err != nil {
			return apierr.NewServiceError(apierr.CodeParameterInvalid, err.Error())
		}
		id, _ := sign.Lookup(params, "OTSAccessKeyId")
		signer, ok := s.signer(id, params)
		if !ok {
			return authFailed(apierr.MessageUnknownAccessKey)
		}
		if err := signer.VerifyParams(req.Path, params); err != nil {
			return authFailed(apierr.MessageSignatureMismatch)
		}
		return nil
	}

	params := []sign.Param{{Name: "SignatureMethod", Value: req.Header.Get(sign.HeaderSignatureMethod)}}
	signer, ok := s.signer(req.Header.Get(sign.HeaderAccessKeyID), params)
	if !ok {
		return authFailed(apierr.MessageUnknownAccessKey)
	}
	switch err := signer.VerifyHeaders(req.Path, req.Header, req.Body); {
	case errors.Is(err, sign.ErrContentMD5Mismatch):
		return authFailed(apierr.MessageContentMD5Mismatch)
	case err != nil:
		return authFailed(apierr.MessageSignatureMismatch)
	}
	return nil
}

// signer returns the signer of access key id. The signature method is taken from the
// SignatureMethod parameter.
func (s *RPCServer) signer(id string, params []sign.Param) (sign.Signer, bool) {
	secret, ok := s.config.Credentials[id]
	if !ok || id == "" {
		return sign.Signer{}, false
	}
	method, _ := sign.Lookup(params, "SignatureMethod")
	return sign.Signer{AccessKeyID: id, AccessKeySecret: secret, SignatureMethod: method}, true
}

// Handler returns the HTTP handler of the emulator without listening
func (s *RPCServer) Handler() http.Handler {
	return s.transport.Handler(s.config)
}

// Serve starts the emulator
// This function will also initialize the loggers and start the transport layer
func (s *RPCServer) Serve() error {
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}
	Logger.Infof("otsc emulator ready, %d access keys configured", len(s.config.Credentials))
	return s.transport.Listen(s.config)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// generationOf picks the protocol generation from a request content type
func generationOf(contentType string) common.Generation {
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		return common.GenerationLegacy
	}
	return common.Generation2013
}

// statusOf maps an error code to the HTTP status code of the response
func statusOf(code string) int {
	switch code {
	case apierr.CodeAuthFailed:
		return http.StatusForbidden
	case apierr.CodeObjectNotExist, apierr.CodeSessionNotExist:
		return http.StatusNotFound
	case apierr.CodeObjectAlreadyExist, apierr.CodePrimaryKeyAlreadyExist, apierr.CodePrimaryKeyNotExist:
		return http.StatusConflict
	case apierr.CodeInternalServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// countRequest updates the request counter of the emulator
func countRequest(operation, code string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`otsc_emulator_requests_total{operation=%q,code=%q}`, operation, code)).Inc()
}
