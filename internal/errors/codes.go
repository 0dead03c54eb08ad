package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCode represents internal error codes for client operations
type ErrorCode int

const (
	ErrCodeOK ErrorCode = 0

	// Configuration errors
	ErrCodeMissingRequiredConfig     ErrorCode = 1000
	ErrCodeMissingRequiredCredential ErrorCode = 1001
	ErrCodeInvalidEdition            ErrorCode = 1002

	// Connectivity errors
	ErrCodeConnectionFailed ErrorCode = 2000
	ErrCodeInternal         ErrorCode = 2999
)

// String returns the kind name used in logs and CLI output
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "OK"
	case ErrCodeMissingRequiredConfig:
		return "MissingRequiredConfig"
	case ErrCodeMissingRequiredCredential:
		return "MissingRequiredCredential"
	case ErrCodeInvalidEdition:
		return "InvalidEdition"
	case ErrCodeConnectionFailed:
		return "ConnectionFailed"
	default:
		return "Internal"
	}
}

// ClientError represents a structured error with code and context
type ClientError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ToGRPCStatus converts ClientError to a gRPC status for callers that
// surface client failures through their own gRPC services.
func (e *ClientError) ToGRPCStatus() *status.Status {
	return status.New(e.toGRPCCode(), e.Error())
}

func (e *ClientError) toGRPCCode() codes.Code {
	switch e.Code {
	case ErrCodeOK:
		return codes.OK
	case ErrCodeInvalidEdition:
		return codes.InvalidArgument
	case ErrCodeMissingRequiredConfig:
		return codes.FailedPrecondition
	case ErrCodeMissingRequiredCredential:
		return codes.Unauthenticated
	case ErrCodeConnectionFailed:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// NewClientError creates a new ClientError
func NewClientError(code ErrorCode, message string, cause error) *ClientError {
	return &ClientError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithDetail adds a detail to the error
func (e *ClientError) WithDetail(key string, value interface{}) *ClientError {
	e.Details[key] = value
	return e
}

func MissingRequiredConfig(message string) *ClientError {
	return NewClientError(ErrCodeMissingRequiredConfig, message, nil)
}

func MissingRequiredCredential(message string, cause error) *ClientError {
	return NewClientError(ErrCodeMissingRequiredCredential, message, cause)
}

func InvalidEdition(value string) *ClientError {
	return NewClientError(ErrCodeInvalidEdition, fmt.Sprintf("unrecognized edition %q", value), nil).
		WithDetail("value", value)
}

func ConnectionFailed(message string, cause error) *ClientError {
	return NewClientError(ErrCodeConnectionFailed, message, cause)
}

// IsClientError checks if an error is, or wraps, a ClientError
func IsClientError(err error) bool {
	var ce *ClientError
	return stderrors.As(err, &ce)
}

// Status converts any error to a gRPC status. Errors that do not wrap a
// ClientError map to codes.Unknown.
func Status(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	var ce *ClientError
	if stderrors.As(err, &ce) {
		return status.New(ce.toGRPCCode(), err.Error())
	}
	return status.New(codes.Unknown, err.Error())
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var ce *ClientError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternal
}

func IsMissingRequiredConfig(err error) bool {
	return GetCode(err) == ErrCodeMissingRequiredConfig
}

func IsMissingRequiredCredential(err error) bool {
	return GetCode(err) == ErrCodeMissingRequiredCredential
}

func IsInvalidEdition(err error) bool {
	return GetCode(err) == ErrCodeInvalidEdition
}

func IsConnectionFailed(err error) bool {
	return GetCode(err) == ErrCodeConnectionFailed
}
