// Package ws implements the Hrana-over-WebSocket stream.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/giovannibenussi/libsql-client-go/hrana"
	"github.com/giovannibenussi/libsql-client-go/transport"
)

// The client opens exactly one Hrana stream per connection, so the stream id
// is fixed.
const streamID int32 = 1

const maxMessageSize = 1 << 26

// Options configures a WebSocket stream.
type Options struct {
	// URL is the ws:// or wss:// endpoint.
	URL string

	// AuthToken is the JWT sent in the hello message, if any.
	AuthToken string

	// HTTPClient is used for the opening handshake. Optional.
	HTTPClient *http.Client
}

// Stream is a pipelined Hrana stream over one WebSocket connection.
type Stream struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex

	mu        sync.Mutex
	closed    bool
	closing   bool
	nextReqID int32
	nextSQLID int32
	pending   map[int32]*pendingOp
	inflight  sync.WaitGroup
}

type reply struct {
	resp *hrana.Response
	err  error
}

type pendingOp struct {
	ch chan reply
}

// Connect dials the server, performs the hello handshake and opens the
// stream. The returned stream is ready for pipelined submissions.
func Connect(ctx context.Context, opts Options) (*Stream, error) {
	conn, _, err := websocket.Dial(ctx, opts.URL, &websocket.DialOptions{
		Subprotocols: []string{hrana.SubprotocolV2},
		HTTPClient:   opts.HTTPClient,
	})
	if err != nil {
		return nil, &transport.SocketError{Message: "websocket dial failed", Cause: err}
	}
	if proto := conn.Subprotocol(); proto != hrana.SubprotocolV2 {
		conn.Close(websocket.StatusProtocolError, "unsupported subprotocol")
		return nil, &transport.VersionError{Want: hrana.SubprotocolV2, Got: proto}
	}
	conn.SetReadLimit(maxMessageSize)

	streamCtx, cancel := context.WithCancel(context.Background())
	s := &Stream{
		conn:      conn,
		ctx:       streamCtx,
		cancel:    cancel,
		nextReqID: 1,
		nextSQLID: 1,
		pending:   make(map[int32]*pendingOp),
	}

	hello := &hrana.ClientMsg{Type: "hello"}
	if opts.AuthToken != "" {
		jwt := opts.AuthToken
		hello.JWT = &jwt
	}
	if err := s.write(ctx, hello); err != nil {
		s.teardown()
		return nil, err
	}

	var msg hrana.ServerMsg
	if err := s.readMsg(ctx, &msg); err != nil {
		s.teardown()
		return nil, err
	}
	switch msg.Type {
	case hrana.MsgHelloOK:
	case hrana.MsgHelloError:
		s.teardown()
		if msg.Error != nil {
			return nil, msg.Error
		}
		return nil, &transport.ProtoError{Message: "hello_error without an error payload"}
	default:
		s.teardown()
		return nil, &transport.ProtoError{Message: fmt.Sprintf("unexpected server message %q during handshake", msg.Type)}
	}

	go s.readLoop()

	// Pipelined: statements submitted behind open_stream are ordered after
	// it on the wire, so there is no need to await the reply here.
	_ = s.request(&hrana.Request{Type: hrana.ReqOpenStream, StreamID: streamID})

	return s, nil
}

// Submit implements transport.Stream.
func (s *Stream) Submit(stmt *hrana.Stmt) transport.Pending {
	return s.request(&hrana.Request{Type: hrana.ReqExecute, StreamID: streamID, Stmt: stmt})
}

// ExecuteBatch implements transport.Stream.
func (s *Stream) ExecuteBatch(ctx context.Context, batch *hrana.Batch) (*hrana.BatchResult, error) {
	op := s.request(&hrana.Request{Type: hrana.ReqBatch, StreamID: streamID, Batch: batch})
	r, err := op.awaitReply(ctx)
	if err != nil {
		return nil, err
	}
	result, err := r.BatchResult()
	if err != nil {
		return nil, &transport.ProtoError{Message: "bad batch response", Cause: err}
	}
	return result, nil
}

// StoreSQL implements transport.SQLStorer. The reply is not awaited: any
// statement referencing the id is pipelined behind the store_sql request
// and the server processes both in order.
func (s *Stream) StoreSQL(sql string) (int32, bool) {
	s.mu.Lock()
	if s.closed || s.closing {
		s.mu.Unlock()
		return 0, false
	}
	id := s.nextSQLID
	s.nextSQLID++
	s.mu.Unlock()

	_ = s.request(&hrana.Request{Type: hrana.ReqStoreSQL, SQLID: id, SQL: sql})
	return id, true
}

// Closed implements transport.Stream.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed || s.closing
}

// Close aborts the stream. Pending operations fail instead of hanging.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.teardown()
	s.fail(&transport.ClosedError{Message: "stream is closed"})
	return nil
}

// CloseGracefully stops accepting new work, drains in-flight operations and
// then releases the connection. The transport is never torn down before
// every outstanding response has been observed.
func (s *Stream) CloseGracefully() {
	s.mu.Lock()
	if s.closed || s.closing {
		s.mu.Unlock()
		return
	}
	s.closing = true
	id := s.nextReqID
	s.nextReqID++
	s.mu.Unlock()

	s.inflight.Wait()

	// Best-effort close_stream; the connection is released either way.
	_ = s.write(s.ctx, &hrana.ClientMsg{
		Type:      "request",
		RequestID: id,
		Request:   &hrana.Request{Type: hrana.ReqCloseStream, StreamID: streamID},
	})
	s.Close()
}

func (s *Stream) request(req *hrana.Request) *pendingOp {
	s.mu.Lock()
	if s.closed || s.closing {
		s.mu.Unlock()
		return resolvedOp(&transport.ClosedError{Message: "stream is closed"})
	}
	id := s.nextReqID
	s.nextReqID++
	op := &pendingOp{ch: make(chan reply, 1)}
	s.pending[id] = op
	s.inflight.Add(1)
	s.mu.Unlock()

	msg := &hrana.ClientMsg{Type: "request", RequestID: id, Request: req}
	if err := s.write(s.ctx, msg); err != nil {
		s.resolve(id, reply{err: err})
	}
	return op
}

func (s *Stream) resolve(id int32, r reply) {
	s.mu.Lock()
	op, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if ok {
		op.ch <- r
		s.inflight.Done()
	}
}

// fail resolves every pending operation with the given error. Used when the
// connection is lost or the protocol is violated: the whole stream is
// poisoned, not just one request.
func (s *Stream) fail(cause error) {
	s.mu.Lock()
	if s.closed {
		if _, ok := cause.(*transport.ClosedError); !ok {
			cause = &transport.ClosedError{Message: "stream is closed", Cause: cause}
		}
	}
	pending := s.pending
	s.pending = make(map[int32]*pendingOp)
	s.mu.Unlock()

	for _, op := range pending {
		op.ch <- reply{err: cause}
		s.inflight.Done()
	}
}

func (s *Stream) readLoop() {
	for {
		var msg hrana.ServerMsg
		if err := s.readMsg(s.ctx, &msg); err != nil {
			s.fail(err)
			return
		}
		switch msg.Type {
		case hrana.MsgResponseOK:
			if msg.Response == nil {
				s.fail(&transport.ProtoError{Message: "response_ok without a response payload"})
				return
			}
			s.resolve(msg.RequestID, reply{resp: msg.Response})
		case hrana.MsgResponseError:
			var err error = &transport.ProtoError{Message: "response_error without an error payload"}
			if msg.Error != nil {
				err = msg.Error
			}
			s.resolve(msg.RequestID, reply{err: err})
		default:
			s.fail(&transport.ProtoError{Message: fmt.Sprintf("unexpected server message %q", msg.Type)})
			return
		}
	}
}

func (s *Stream) write(ctx context.Context, msg *hrana.ClientMsg) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return &transport.ProtoError{Message: "failed to encode client message", Cause: err}
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return &transport.SocketError{Message: "websocket write failed", Cause: err}
	}
	return nil
}

func (s *Stream) readMsg(ctx context.Context, msg *hrana.ServerMsg) error {
	_, data, err := s.conn.Read(ctx)
	if err != nil {
		return &transport.SocketError{Message: "websocket read failed", Cause: err}
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return &transport.ProtoError{Message: "malformed server message", Cause: err}
	}
	return nil
}

func (s *Stream) teardown() {
	s.cancel()
	_ = s.conn.Close(websocket.StatusNormalClosure, "")
}

func (op *pendingOp) awaitReply(ctx context.Context) (*hrana.Response, error) {
	select {
	case r := <-op.ch:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Await implements transport.Pending.
func (op *pendingOp) Await(ctx context.Context) (*hrana.StmtResult, error) {
	resp, err := op.awaitReply(ctx)
	if err != nil {
		return nil, err
	}
	result, err := resp.StmtResult()
	if err != nil {
		return nil, &transport.ProtoError{Message: "bad execute response", Cause: err}
	}
	return result, nil
}

func resolvedOp(err error) *pendingOp {
	op := &pendingOp{ch: make(chan reply, 1)}
	op.ch <- reply{err: err}
	return op
}
