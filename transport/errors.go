package transport

import "fmt"

// ClientError marks failures produced by this library's own stream
// implementations, as opposed to errors from foreign code that must be
// propagated unchanged.
type ClientError interface {
	error
	clientError()
}

// ProtoError reports a violation of the Hrana protocol framing: a message
// the client could not decode or did not expect.
type ProtoError struct {
	Message string
	Cause   error
}

func (e *ProtoError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("protocol error: %s: %s", e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("protocol error: %s", e.Message)
}

func (e *ProtoError) Unwrap() error { return e.Cause }
func (e *ProtoError) clientError()  {}

// ClosedError reports an operation attempted on a stream or client that is
// already closed.
type ClosedError struct {
	Message string
	Cause   error
}

func (e *ClosedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

func (e *ClosedError) Unwrap() error { return e.Cause }
func (e *ClosedError) clientError()  {}

// SocketError reports a failure of the underlying transport: a broken
// WebSocket connection or a failed HTTP exchange.
type SocketError struct {
	Message string
	Cause   error
}

func (e *SocketError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

func (e *SocketError) Unwrap() error { return e.Cause }
func (e *SocketError) clientError()  {}

// VersionError reports a protocol version mismatch between client and
// server, detected during the handshake.
type VersionError struct {
	Want string
	Got  string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("protocol version mismatch: want %q, server offered %q", e.Want, e.Got)
}

func (e *VersionError) clientError() {}
