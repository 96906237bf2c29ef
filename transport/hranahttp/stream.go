// Package hranahttp implements the Hrana-over-HTTP stream using the v2
// pipeline endpoint. Server-side stream state is threaded between round
// trips with a baton.
package hranahttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/giovannibenussi/libsql-client-go/hrana"
	"github.com/giovannibenussi/libsql-client-go/transport"
)

// Options configures an HTTP stream.
type Options struct {
	// URL is the http:// or https:// base URL of the server.
	URL string

	// AuthToken is sent as a bearer token, if any.
	AuthToken string

	// HTTPClient is used for all round trips. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
}

// Stream is a Hrana stream over sequential HTTP pipeline round trips. A
// single worker drains submissions in FIFO order, which preserves the
// submission-order execution guarantee of transport.Stream.
type Stream struct {
	httpClient *http.Client
	authToken  string

	ctx    context.Context
	cancel context.CancelFunc

	done chan struct{}

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*op
	baseURL string
	baton   *string
	closed  bool
	closing bool
}

type opResult struct {
	stmtResult  *hrana.StmtResult
	batchResult *hrana.BatchResult
	err         error
}

type op struct {
	request hrana.StreamRequest
	ch      chan opResult
}

// New creates an HTTP stream. No round trip happens until the first
// submission.
func New(opts Options) *Stream {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Stream{
		httpClient: httpClient,
		authToken:  opts.AuthToken,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		baseURL:    strings.TrimSuffix(opts.URL, "/"),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.worker()
	return s
}

// Submit implements transport.Stream.
func (s *Stream) Submit(stmt *hrana.Stmt) transport.Pending {
	o, err := s.enqueue(hrana.StreamRequest{Type: "execute", Stmt: stmt})
	if err != nil {
		return &pending{result: opResult{err: err}, resolved: true}
	}
	return &pending{op: o}
}

// ExecuteBatch implements transport.Stream.
func (s *Stream) ExecuteBatch(ctx context.Context, batch *hrana.Batch) (*hrana.BatchResult, error) {
	o, err := s.enqueue(hrana.StreamRequest{Type: "batch", Batch: batch})
	if err != nil {
		return nil, err
	}
	select {
	case r := <-o.ch:
		if r.err != nil {
			return nil, r.err
		}
		return r.batchResult, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Closed implements transport.Stream.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed || s.closing
}

// Close aborts the stream. Queued and in-flight operations fail instead of
// hanging.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.closing = true
	s.cond.Signal()
	s.mu.Unlock()

	s.cancel()
	return nil
}

// CloseGracefully stops accepting new work, waits for queued operations to
// drain and then releases the server-side stream with a final close
// request.
func (s *Stream) CloseGracefully() {
	s.mu.Lock()
	if s.closed || s.closing {
		s.mu.Unlock()
		return
	}
	s.closing = true
	s.cond.Signal()
	s.mu.Unlock()

	<-s.done

	s.mu.Lock()
	baton := s.baton
	s.closed = true
	s.mu.Unlock()

	if baton != nil {
		// Best effort: the server expires the stream on its own if the
		// close request is lost.
		_ = s.roundTrip(hrana.StreamRequest{Type: "close"})
	}
	s.cancel()
}

// enqueue appends an operation to the submission queue. The queue is
// unbounded: a submission never fails for being early, only for arriving on
// a closed stream.
func (s *Stream) enqueue(req hrana.StreamRequest) (*op, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.closing {
		return nil, &transport.ClosedError{Message: "stream is closed"}
	}
	o := &op{request: req, ch: make(chan opResult, 1)}
	s.queue = append(s.queue, o)
	s.cond.Signal()
	return o, nil
}

// worker drains the queue in FIFO order, one round trip at a time. On a
// graceful close it finishes the queued work before exiting; on an abort the
// remaining operations fail with a closed error.
func (s *Stream) worker() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closing {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		o := s.queue[0]
		s.queue = s.queue[1:]
		closed := s.closed
		s.mu.Unlock()

		if closed {
			o.ch <- opResult{err: &transport.ClosedError{Message: "stream is closed"}}
			continue
		}
		o.ch <- s.roundTrip(o.request)
	}
}

func (s *Stream) roundTrip(req hrana.StreamRequest) opResult {
	s.mu.Lock()
	pipelineReq := hrana.PipelineReq{Baton: s.baton, Requests: []hrana.StreamRequest{req}}
	url := s.baseURL + hrana.PipelinePath
	s.mu.Unlock()

	body, err := json.Marshal(&pipelineReq)
	if err != nil {
		return opResult{err: &transport.ProtoError{Message: "failed to encode pipeline request", Cause: err}}
	}

	httpReq, err := http.NewRequestWithContext(s.ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return opResult{err: &transport.SocketError{Message: "failed to build pipeline request", Cause: err}}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return opResult{err: &transport.SocketError{Message: "pipeline request failed", Cause: err}}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return opResult{err: &transport.SocketError{Message: "failed to read pipeline response", Cause: err}}
	}
	if httpResp.StatusCode != http.StatusOK {
		return opResult{err: &transport.ProtoError{
			Message: fmt.Sprintf("pipeline endpoint returned status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(respBody))),
		}}
	}

	var pipelineResp hrana.PipelineResp
	if err := json.Unmarshal(respBody, &pipelineResp); err != nil {
		return opResult{err: &transport.ProtoError{Message: "malformed pipeline response", Cause: err}}
	}

	s.mu.Lock()
	s.baton = pipelineResp.Baton
	if pipelineResp.BaseURL != nil {
		s.baseURL = strings.TrimSuffix(*pipelineResp.BaseURL, "/")
	}
	s.mu.Unlock()

	if len(pipelineResp.Results) != 1 {
		return opResult{err: &transport.ProtoError{
			Message: fmt.Sprintf("pipeline returned %d results for 1 request", len(pipelineResp.Results)),
		}}
	}

	result := pipelineResp.Results[0]
	switch result.Type {
	case "ok":
		if result.Response == nil {
			return opResult{err: &transport.ProtoError{Message: "ok result without a response payload"}}
		}
		return s.decodeResponse(req.Type, result.Response)
	case "error":
		if result.Error == nil {
			return opResult{err: &transport.ProtoError{Message: "error result without an error payload"}}
		}
		return opResult{err: result.Error}
	default:
		return opResult{err: &transport.ProtoError{Message: fmt.Sprintf("unknown result type %q", result.Type)}}
	}
}

func (s *Stream) decodeResponse(reqType string, resp *hrana.StreamResponse) opResult {
	switch reqType {
	case "execute":
		res, err := resp.StmtResult()
		if err != nil {
			return opResult{err: &transport.ProtoError{Message: "bad execute response", Cause: err}}
		}
		return opResult{stmtResult: res}
	case "batch":
		res, err := resp.BatchResult()
		if err != nil {
			return opResult{err: &transport.ProtoError{Message: "bad batch response", Cause: err}}
		}
		return opResult{batchResult: res}
	default:
		return opResult{}
	}
}

type pending struct {
	op       *op
	result   opResult
	resolved bool
}

// Await implements transport.Pending.
func (p *pending) Await(ctx context.Context) (*hrana.StmtResult, error) {
	if !p.resolved {
		select {
		case r := <-p.op.ch:
			p.result = r
			p.resolved = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.result.err != nil {
		return nil, p.result.err
	}
	return p.result.stmtResult, nil
}
