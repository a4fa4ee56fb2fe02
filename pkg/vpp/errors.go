package vpp

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failure for callers and metrics.
type ErrorKind string

const (
	// KindTransport is a network or IO failure reported by the transport.
	KindTransport ErrorKind = "transport"

	// KindAPI is a response whose status is not StatusSuccess.
	KindAPI ErrorKind = "api"

	// KindProtocol is a structurally invalid response or setup state.
	KindProtocol ErrorKind = "protocol"
)

// Sentinels for errors.Is matching on the error kind.
var (
	ErrTransport = errors.New("vpp transport error")
	ErrAPI       = errors.New("vpp api error")
	ErrProtocol  = errors.New("vpp protocol error")
)

// NoIndex marks an error that does not belong to a batch.
const NoIndex = -1

// TransportError wraps a failure to obtain a response at all.
type TransportError struct {
	Operation Operation
	Index     int
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("VPP %s transport error%s: %v", e.Operation, batchSuffix(e.Index), e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// APIError is a response the service marked as failed.
type APIError struct {
	Operation   Operation
	Index       int
	HTTPStatus  int
	ErrorNumber int
	Message     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("VPP %s error %d%s: %s", e.Operation, e.ErrorNumber, batchSuffix(e.Index), e.Message)
}

// Is matches ErrAPI.
func (e *APIError) Is(target error) bool { return target == ErrAPI }

// URLMoved reports whether the service asked the client to rediscover its URLs.
func (e *APIError) URLMoved() bool { return e.ErrorNumber == ErrorNumberURLMoved }

// ProtocolError is a response or setup state that violates the protocol.
type ProtocolError struct {
	Operation Operation
	Index     int
	Reason    string
	Err       error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("VPP %s protocol error%s: %s", e.Operation, batchSuffix(e.Index), e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Is matches ErrProtocol.
func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

func batchSuffix(index int) string {
	if index < 0 {
		return ""
	}
	return fmt.Sprintf(" (batch %d)", index)
}

// KindOf returns the kind of err, or "" if err is not a VPP error.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrAPI):
		return KindAPI
	case errors.Is(err, ErrProtocol):
		return KindProtocol
	default:
		return ""
	}
}

// IsSuccess reports whether the transport succeeded and the service status
// equals StatusSuccess.
func IsSuccess(r *RawResponse) bool {
	if r == nil {
		return false
	}
	return r.HTTPStatus >= 200 && r.HTTPStatus < 300 &&
		r.Status != nil && *r.Status == StatusSuccess
}

// Validate returns nil for a successful response and an *APIError otherwise.
func Validate(op Operation, index int, r *RawResponse) error {
	if IsSuccess(r) {
		return nil
	}
	if r == nil {
		return &ProtocolError{Operation: op, Index: index, Reason: "missing response"}
	}

	apiErr := &APIError{
		Operation:   op,
		Index:       index,
		HTTPStatus:  r.HTTPStatus,
		ErrorNumber: r.ErrorNumber,
		Message:     r.ErrorMessage,
	}
	if apiErr.Message == "" {
		switch {
		case r.Status == nil && (r.HTTPStatus < 200 || r.HTTPStatus >= 300):
			apiErr.Message = http.StatusText(r.HTTPStatus)
		case r.Status == nil:
			apiErr.Message = "response has no status"
		default:
			apiErr.Message = fmt.Sprintf("status %d", *r.Status)
		}
	}
	return apiErr
}
