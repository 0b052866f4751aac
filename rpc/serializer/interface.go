package serializer

import (
	"github.com/ValentinKolb/otsc/lib/sign"
	"github.com/ValentinKolb/otsc/rpc/common"
)

// IRPCSerializer is the client side of a wire encoding: it encodes requests and
// decodes responses of one protocol generation.
type IRPCSerializer interface {
	// Generation returns the protocol generation the serializer speaks
	Generation() common.Generation
	// ContentType returns the media type of serialized requests
	ContentType() string
	// SerializeRequest serializes a request Message into a request body
	SerializeRequest(msg common.Message) ([]byte, error)
	// DeserializeResponse decodes the body of a success response of operation op into msg.
	// Operations without a response body leave msg untouched.
	DeserializeResponse(op common.Operation, b []byte, msg *common.Message) error
	// DeserializeError decodes the body of a non-success response
	DeserializeError(b []byte) (*common.ErrorMessage, error)
}

// IParamSerializer is implemented by serializers whose requests are signed as a
// parameter list (legacy generation). The client signs RequestParams and sends the
// encoded signed parameters as body.
type IParamSerializer interface {
	IRPCSerializer
	// RequestParams returns the unsigned request parameters in wire order
	RequestParams(msg common.Message) ([]sign.Param, error)
}

// IRPCServerSerializer is the server side of a wire encoding. It is used by the emulator.
type IRPCServerSerializer interface {
	IRPCSerializer
	// DeserializeRequest decodes a request body of operation op into msg
	DeserializeRequest(op common.Operation, b []byte, msg *common.Message) error
	// SerializeResponse serializes a response Message
	SerializeResponse(msg common.Message) ([]byte, error)
	// SerializeError serializes the body of a non-success response
	SerializeError(e common.ErrorMessage) ([]byte, error)
}

// ILegacySerializer is the two sided serializer of the legacy generation.
type ILegacySerializer interface {
	IParamSerializer
	// DeserializeRequest decodes a request body of operation op into msg
	DeserializeRequest(op common.Operation, b []byte, msg *common.Message) error
	// SerializeResponse serializes a response Message
	SerializeResponse(msg common.Message) ([]byte, error)
	// SerializeError serializes the body of a non-success response
	SerializeError(e common.ErrorMessage) ([]byte, error)
}

// ForGeneration returns the serializer of protocol generation gen.
func ForGeneration(gen common.Generation) IRPCServerSerializer {
	if gen == common.GenerationLegacy {
		return NewFormSerializer()
	}
	return NewProtobufSerializer()
}
