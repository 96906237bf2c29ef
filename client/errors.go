package client

import (
	"errors"
	"fmt"

	"github.com/giovannibenussi/libsql-client-go/hrana"
	"github.com/giovannibenussi/libsql-client-go/transport"
)

// Code identifies a failure kind in the client's closed error taxonomy.
// Server-supplied codes pass through verbatim next to these.
type Code string

const (
	// CodeTransactionClosed is an operation attempted on a closed
	// transaction.
	CodeTransactionClosed Code = "TRANSACTION_CLOSED"
	// CodeServerError is a generic server-side failure, including a
	// missing result for a batch step that should have run.
	CodeServerError Code = "SERVER_ERROR"
	// CodeHranaProtoError is a violation of the Hrana protocol framing.
	CodeHranaProtoError Code = "HRANA_PROTO_ERROR"
	// CodeHranaClosedError is an operation on an already-closed stream or
	// client.
	CodeHranaClosedError Code = "HRANA_CLOSED_ERROR"
	// CodeHranaWebsocketError is a failure of the underlying transport.
	CodeHranaWebsocketError Code = "HRANA_WEBSOCKET_ERROR"
	// CodeProtocolVersionError is a client/server protocol version
	// mismatch.
	CodeProtocolVersionError Code = "PROTOCOL_VERSION_ERROR"
	// CodeURLInvalid is a malformed or unsupported database URL.
	CodeURLInvalid Code = "URL_INVALID"
	// CodeUnknown is a client-library failure none of the other kinds
	// describe.
	CodeUnknown Code = "UNKNOWN"
)

// Error is the single structured error type surfaced to callers. Every
// failure carries a recognized code; lower-level causes are preserved for
// errors.Is and errors.As.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %s)", e.Code, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// errTransactionClosed creates the error for operations on a closed
// transaction.
func errTransactionClosed() *Error {
	return &Error{
		Code:    CodeTransactionClosed,
		Message: "the transaction is closed",
	}
}

// errServerMissingResult creates the error for a batch step that should
// have run but produced no outcome.
func errServerMissingResult() *Error {
	return &Error{
		Code:    CodeServerError,
		Message: "server did not return a result for a batch step",
	}
}

// mapError classifies a lower-level failure into the taxonomy. Matching is
// on the outermost error: a failure not recognized as belonging to this
// library propagates unchanged, never miscategorized.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch e := err.(type) {
	case *Error:
		return e
	case *hrana.Error:
		if e.Code != nil {
			return &Error{Code: Code(*e.Code), Message: e.Message, Cause: e}
		}
		return &Error{Code: CodeServerError, Message: e.Message, Cause: e}
	case *transport.ProtoError:
		return &Error{Code: CodeHranaProtoError, Message: e.Message, Cause: e}
	case *transport.ClosedError:
		return &Error{Code: CodeHranaClosedError, Message: e.Message, Cause: e}
	case *transport.SocketError:
		return &Error{Code: CodeHranaWebsocketError, Message: e.Message, Cause: e}
	case *transport.VersionError:
		return &Error{Code: CodeProtocolVersionError, Message: e.Error(), Cause: e}
	}

	var clientErr transport.ClientError
	if errors.As(err, &clientErr) {
		return &Error{Code: CodeUnknown, Message: err.Error(), Cause: err}
	}

	// Not ours to classify.
	return err
}
