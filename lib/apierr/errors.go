package apierr

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

// Vendor error codes. Local validation reuses the vendor vocabulary so callers can
// branch on a single code regardless of where the request was rejected.
const (
	CodeParameterInvalid           = "OTSParameterInvalid"
	CodeObjectAlreadyExist         = "OTSStorageObjectAlreadyExist"
	CodeObjectNotExist             = "OTSStorageObjectNotExist"
	CodeMetaNotMatch               = "OTSMetaNotMatch"
	CodePrimaryKeyAlreadyExist     = "OTSStoragePrimaryKeyAlreadyExist"
	CodePrimaryKeyNotExist         = "OTSStoragePrimaryKeyNotExist"
	CodeSessionNotExist            = "OTSStorageSessionNotExist"
	CodeAuthFailed                 = "OTSAuthFailed"
	CodeInternalServerError        = "OTSInternalServerError"
	CodeUnsupportedOperation       = "OTSUnsupportedOperation"
	CodeOK                         = "OK"
	codeTransport                  = "TransportError"
	codeMalformedResponse          = "MalformedResponse"
	MessageRowsCountExceedsLimit   = "Rows count exceeds the upper limit"
	MessageMissingPrimaryKey       = "The primary key of the row is missing"
	MessageInvalidTransactionID    = "TransactionID is invalid."
	MessageSessionNotExist         = "The session does not exist"
	MessageSignatureMismatch       = "Signature mismatch"
	MessageContentMD5Mismatch      = "Content MD5 mismatch"
	MessageUnknownAccessKey        = "The access key id does not exist"
	MessagePrimaryKeyMetaNotMatch  = "Primary key meta defined in the request does not match with the Table meta."
	MessageRowToInsertExists       = "Row to insert does exist."
	MessageRowToUpdateMissing      = "Row to update doesn't exist."
	MessageTableExists             = "Requested table/view does exist."
	MessageTableMissing            = "Requested table/view doesn't exist."
	MessageTableGroupExists        = "Requested table group does exist."
	MessageTableGroupMissing       = "Requested table group doesn't exist."
	MessageTableWithoutPrimaryKey  = "The Table/View does not specify the primary key."
	MessageInvalidPartitionKeyType = "is an invalid type for the first column of primary key (partition key)."
)

// --------------------------------------------------------------------------
// Sentinels
// --------------------------------------------------------------------------

var (
	// ErrTransport matches every *TransportError
	ErrTransport = errors.New("transport error")
	// ErrService matches every *ServiceError
	ErrService = errors.New("service error")
	// ErrMalformedResponse matches every *MalformedResponseError
	ErrMalformedResponse = errors.New("malformed response")
	// ErrLocalValidation matches every *LocalValidationError
	ErrLocalValidation = errors.New("local validation error")
)

// --------------------------------------------------------------------------
// Error Types
// --------------------------------------------------------------------------

// TransportError reports that no response was obtained for a request.
type TransportError struct {
	Host     string // target hostname the request was sent to
	ServerID string // server correlation id, may be empty
	Timeout  bool   // true if the request was abandoned because of the deadline
	Err      error  // underlying network error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("transport error (host %s)", e.Host)
	if e.Timeout {
		msg += ": request timed out, outcome unknown"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.ServerID != "" {
		msg += " [" + e.ServerID + "]"
	}
	return msg
}

func (e *TransportError) Unwrap() error        { return e.Err }
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ServiceError is a structured error returned by the remote service.
type ServiceError struct {
	Code     string
	Message  string
	ServerID string
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("%sError: %s", e.Code, e.Message)
	if e.ServerID != "" {
		msg += " [" + e.ServerID + "]"
	}
	return msg
}

// Name returns the error name used by the service documentation (code + "Error").
func (e *ServiceError) Name() string { return e.Code + "Error" }

func (e *ServiceError) Is(target error) bool {
	if target == ErrService {
		return true
	}
	var other *ServiceError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// MalformedResponseError reports a success status with an undecodable body.
type MalformedResponseError struct {
	Operation string
	ServerID  string
	Err       error
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("malformed %s response", e.Operation)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.ServerID != "" {
		msg += " [" + e.ServerID + "]"
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error        { return e.Err }
func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// LocalValidationError is raised before any network call is made.
type LocalValidationError struct {
	Code    string
	Message string
	Err     error // optional cause, e.g. value.ErrKindMismatch
}

func (e *LocalValidationError) Error() string {
	return fmt.Sprintf("%sError: %s", e.Code, e.Message)
}

func (e *LocalValidationError) Unwrap() error        { return e.Err }
func (e *LocalValidationError) Is(target error) bool { return target == ErrLocalValidation }

// --------------------------------------------------------------------------
// Constructors and Helper
// --------------------------------------------------------------------------

// Invalid returns a LocalValidationError with code OTSParameterInvalid.
func Invalid(format string, args ...any) *LocalValidationError {
	return &LocalValidationError{Code: CodeParameterInvalid, Message: fmt.Sprintf(format, args...)}
}

// InvalidCause returns a LocalValidationError with code OTSParameterInvalid that wraps err.
func InvalidCause(err error, format string, args ...any) *LocalValidationError {
	return &LocalValidationError{
		Code:    CodeParameterInvalid,
		Message: fmt.Sprintf(format, args...) + ": " + err.Error(),
		Err:     err,
	}
}

// NewServiceError creates a ServiceError. It is used by the emulator to answer requests.
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

// ServerID formats the server correlation id from the response request and host ids.
// It returns an empty string if both are empty.
func ServerID(requestID, hostID string) string {
	if requestID == "" && hostID == "" {
		return ""
	}
	return fmt.Sprintf("RequestID: %s HostID: %s", requestID, hostID)
}

// Code returns the stable discriminator of err, or an empty string if err does not
// belong to the taxonomy.
func Code(err error) string {
	var (
		svc   *ServiceError
		local *LocalValidationError
		tr    *TransportError
		mal   *MalformedResponseError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &svc):
		return svc.Code
	case errors.As(err, &local):
		return local.Code
	case errors.As(err, &tr):
		return codeTransport
	case errors.As(err, &mal):
		return codeMalformedResponse
	default:
		return ""
	}
}
