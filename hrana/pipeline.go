package hrana

import "encoding/json"

// PipelineReq is the body of a POST to the v2 pipeline endpoint. The baton
// threads server-side stream state between round trips; it is null on the
// first request of a stream.
type PipelineReq struct {
	Baton    *string         `json:"baton"`
	Requests []StreamRequest `json:"requests"`
}

// StreamRequest is one request inside a pipeline: "execute", "batch" or
// "close".
type StreamRequest struct {
	Type  string `json:"type"`
	Stmt  *Stmt  `json:"stmt,omitempty"`
	Batch *Batch `json:"batch,omitempty"`
}

// PipelineResp is the body of a pipeline response. BaseURL, when present,
// redirects subsequent requests of the same stream to another host.
type PipelineResp struct {
	Baton   *string        `json:"baton"`
	BaseURL *string        `json:"base_url"`
	Results []StreamResult `json:"results"`
}

// StreamResult is the outcome of one pipelined request: "ok" with a
// response payload or "error" with a structured error.
type StreamResult struct {
	Type     string          `json:"type"`
	Response *StreamResponse `json:"response,omitempty"`
	Error    *Error          `json:"error,omitempty"`
}

// StreamResponse mirrors Response for the HTTP pipeline.
type StreamResponse struct {
	Type   string          `json:"type"`
	Result json.RawMessage `json:"result,omitempty"`
}

// StmtResult decodes the payload of an "execute" stream response.
func (r *StreamResponse) StmtResult() (*StmtResult, error) {
	return (&Response{Type: r.Type, Result: r.Result}).StmtResult()
}

// BatchResult decodes the payload of a "batch" stream response.
func (r *StreamResponse) BatchResult() (*BatchResult, error) {
	return (&Response{Type: r.Type, Result: r.Result}).BatchResult()
}
