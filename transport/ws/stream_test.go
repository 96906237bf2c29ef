package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/giovannibenussi/libsql-client-go/hrana"
	"github.com/giovannibenussi/libsql-client-go/transport"
	"github.com/giovannibenussi/libsql-client-go/transport/ws"
)

func strPtr(s string) *string { return &s }

// hranaServer is a minimal in-process Hrana WebSocket server: it answers the
// hello handshake, acknowledges stream requests and serves scripted execute
// results keyed by SQL text.
type hranaServer struct {
	t        *testing.T
	results  map[string]*hrana.StmtResult
	helloErr *hrana.Error

	mu       sync.Mutex
	reqTypes []string
}

func (s *hranaServer) requestTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reqTypes...)
}

func (s *hranaServer) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{hrana.SubprotocolV2},
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := context.Background()
	write := func(msg *hrana.ServerMsg) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		return conn.Write(ctx, websocket.MessageText, data)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg hrana.ClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}

		switch msg.Type {
		case "hello":
			if s.helloErr != nil {
				_ = write(&hrana.ServerMsg{Type: hrana.MsgHelloError, Error: s.helloErr})
				return
			}
			if err := write(&hrana.ServerMsg{Type: hrana.MsgHelloOK}); err != nil {
				return
			}
		case "request":
			s.mu.Lock()
			s.reqTypes = append(s.reqTypes, msg.Request.Type)
			s.mu.Unlock()

			resp := &hrana.Response{Type: msg.Request.Type}
			if msg.Request.Type == hrana.ReqExecute {
				result := &hrana.StmtResult{}
				if msg.Request.Stmt != nil && msg.Request.Stmt.SQL != nil {
					if scripted, ok := s.results[*msg.Request.Stmt.SQL]; ok {
						result = scripted
					}
				}
				payload, err := json.Marshal(result)
				if err != nil {
					return
				}
				resp.Result = payload
			}
			if err := write(&hrana.ServerMsg{Type: hrana.MsgResponseOK, RequestID: msg.RequestID, Response: resp}); err != nil {
				return
			}
		}
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectAndExecute(t *testing.T) {
	server := &hranaServer{t: t, results: map[string]*hrana.StmtResult{
		"SELECT 1": {
			Cols: []hrana.Col{{Name: strPtr("1")}},
			Rows: [][]hrana.Value{{{Type: hrana.TypeInteger, Value: "1"}}},
		},
	}}
	srv := httptest.NewServer(http.HandlerFunc(server.handler))
	defer srv.Close()

	stream, err := ws.Connect(context.Background(), ws.Options{URL: wsURL(srv)})
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer stream.Close()

	result, err := stream.Submit(hrana.NewStmt("SELECT 1", true)).Await(context.Background())
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}

	types := server.requestTypes()
	if len(types) < 2 || types[0] != hrana.ReqOpenStream || types[1] != hrana.ReqExecute {
		t.Errorf("expected open_stream before execute, got %v", types)
	}
}

func TestConnectRejectsMissingSubprotocol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A server that never negotiates the Hrana subprotocol.
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		_, _, _ = conn.Read(context.Background())
	}))
	defer srv.Close()

	_, err := ws.Connect(context.Background(), ws.Options{URL: wsURL(srv)})
	if _, ok := err.(*transport.VersionError); !ok {
		t.Fatalf("expected a version error, got %v", err)
	}
}

func TestConnectHelloError(t *testing.T) {
	server := &hranaServer{t: t, helloErr: &hrana.Error{Message: "invalid token", Code: strPtr("AUTH_JWT_INVALID")}}
	srv := httptest.NewServer(http.HandlerFunc(server.handler))
	defer srv.Close()

	_, err := ws.Connect(context.Background(), ws.Options{URL: wsURL(srv), AuthToken: "bad"})
	hranaErr, ok := err.(*hrana.Error)
	if !ok || hranaErr.Code == nil || *hranaErr.Code != "AUTH_JWT_INVALID" {
		t.Fatalf("expected the server's hello error, got %v", err)
	}
}

func TestConnectRefused(t *testing.T) {
	_, err := ws.Connect(context.Background(), ws.Options{URL: "ws://127.0.0.1:1"})
	if _, ok := err.(*transport.SocketError); !ok {
		t.Fatalf("expected a socket error, got %v", err)
	}
}

func TestCloseGracefullyReleasesStream(t *testing.T) {
	server := &hranaServer{t: t, results: map[string]*hrana.StmtResult{}}
	srv := httptest.NewServer(http.HandlerFunc(server.handler))
	defer srv.Close()

	stream, err := ws.Connect(context.Background(), ws.Options{URL: wsURL(srv)})
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	if _, err := stream.Submit(hrana.NewStmt("SELECT 1", true)).Await(context.Background()); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	stream.CloseGracefully()

	if !stream.Closed() {
		t.Error("stream should be closed after graceful close")
	}

	// The close_stream frame is written before the connection drops, but
	// the server may not have decoded it yet.
	deadline := time.Now().Add(2 * time.Second)
	for {
		types := server.requestTypes()
		if len(types) > 0 && types[len(types)-1] == hrana.ReqCloseStream {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected a trailing close_stream, got %v", types)
		}
		time.Sleep(10 * time.Millisecond)
	}

	_, err = stream.Submit(hrana.NewStmt("SELECT 2", true)).Await(context.Background())
	if _, ok := err.(*transport.ClosedError); !ok {
		t.Fatalf("expected a closed error, got %v", err)
	}
}

func TestStoreSQLIsPipelined(t *testing.T) {
	server := &hranaServer{t: t, results: map[string]*hrana.StmtResult{}}
	srv := httptest.NewServer(http.HandlerFunc(server.handler))
	defer srv.Close()

	stream, err := ws.Connect(context.Background(), ws.Options{URL: wsURL(srv)})
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer stream.Close()

	id, ok := stream.StoreSQL("SELECT 1")
	if !ok || id == 0 {
		t.Fatalf("expected a sql id, got (%d, %v)", id, ok)
	}

	stmt := &hrana.Stmt{SQLID: &id, WantRows: true}
	if _, err := stream.Submit(stmt).Await(context.Background()); err != nil {
		t.Fatalf("execute by sql id failed: %v", err)
	}

	types := server.requestTypes()
	storeAt, execAt := -1, -1
	for i, typ := range types {
		switch typ {
		case hrana.ReqStoreSQL:
			storeAt = i
		case hrana.ReqExecute:
			execAt = i
		}
	}
	if storeAt == -1 || execAt == -1 || storeAt > execAt {
		t.Errorf("store_sql must precede the execute that references it: %v", types)
	}
}
