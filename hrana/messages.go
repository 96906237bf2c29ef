package hrana

import (
	"encoding/json"
	"fmt"
)

// ClientMsg is a message sent from the client over a WebSocket connection.
// Type is "hello" for the opening handshake and "request" afterwards.
type ClientMsg struct {
	Type      string   `json:"type"`
	JWT       *string  `json:"jwt,omitempty"`
	RequestID int32    `json:"request_id,omitempty"`
	Request   *Request `json:"request,omitempty"`
}

// Request is the payload of a "request" client message. Type selects which
// of the optional fields are meaningful.
type Request struct {
	Type     string `json:"type"`
	StreamID int32  `json:"stream_id,omitempty"`
	SQLID    int32  `json:"sql_id,omitempty"`
	SQL      string `json:"sql,omitempty"`
	Stmt     *Stmt  `json:"stmt,omitempty"`
	Batch    *Batch `json:"batch,omitempty"`
}

// Request type tags.
const (
	ReqOpenStream  = "open_stream"
	ReqCloseStream = "close_stream"
	ReqExecute     = "execute"
	ReqBatch       = "batch"
	ReqStoreSQL    = "store_sql"
	ReqCloseSQL    = "close_sql"
)

// ServerMsg is a message received from the server over a WebSocket
// connection: "hello_ok", "hello_error", "response_ok" or "response_error".
type ServerMsg struct {
	Type      string    `json:"type"`
	RequestID int32     `json:"request_id,omitempty"`
	Response  *Response `json:"response,omitempty"`
	Error     *Error    `json:"error,omitempty"`
}

// Server message type tags.
const (
	MsgHelloOK       = "hello_ok"
	MsgHelloError    = "hello_error"
	MsgResponseOK    = "response_ok"
	MsgResponseError = "response_error"
)

// Response is the payload of a successful request. Result is decoded lazily
// because its shape depends on the request type.
type Response struct {
	Type   string          `json:"type"`
	Result json.RawMessage `json:"result,omitempty"`
}

// StmtResult decodes the response payload of an execute request.
func (r *Response) StmtResult() (*StmtResult, error) {
	if len(r.Result) == 0 {
		return nil, fmt.Errorf("response of type %q carries no result", r.Type)
	}
	var res StmtResult
	if err := json.Unmarshal(r.Result, &res); err != nil {
		return nil, fmt.Errorf("malformed execute result: %w", err)
	}
	return &res, nil
}

// BatchResult decodes the response payload of a batch request.
func (r *Response) BatchResult() (*BatchResult, error) {
	if len(r.Result) == 0 {
		return nil, fmt.Errorf("response of type %q carries no result", r.Type)
	}
	var res BatchResult
	if err := json.Unmarshal(r.Result, &res); err != nil {
		return nil, fmt.Errorf("malformed batch result: %w", err)
	}
	return &res, nil
}
