package client

import (
	"context"
	"testing"

	"github.com/giovannibenussi/libsql-client-go/hrana"
	"github.com/giovannibenussi/libsql-client-go/transport"
	"github.com/giovannibenussi/libsql-client-go/transport/mock"
)

func newBatchClient(stream transport.Stream) *Client {
	factory := func(ctx context.Context) (transport.Stream, error) {
		return stream, nil
	}
	return NewClient(factory, ClientOptions{})
}

func TestExecuteBatchSingleRoundTrip(t *testing.T) {
	stream := mock.NewStream().
		WithResult("SELECT 1", singleRowResult("1", "1")).
		WithResult("SELECT 2", singleRowResult("2", "2"))
	client := newBatchClient(stream)

	results, err := client.ExecuteBatch(context.Background(), []Statement{
		NewStatement("SELECT 1"),
		NewStatement("SELECT 2"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Rows[0][0] != "1" || results[1].Rows[0][0] != "2" {
		t.Errorf("results out of order: %v, %v", results[0].Rows, results[1].Rows)
	}

	if got := stream.RoundTrips(); got != 1 {
		t.Errorf("expected a single round trip, got %d", got)
	}
	want := []string{"BEGIN", "SELECT 1", "SELECT 2", "COMMIT"}
	got := stream.SubmittedSQL()
	if len(got) != len(want) {
		t.Fatalf("expected submissions %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected submissions %v, got %v", want, got)
		}
	}
	if !stream.Closed() {
		t.Error("batch must consume its stream")
	}
}

func TestExecuteBatchStatementFailureRollsBack(t *testing.T) {
	stream := mock.NewStream().
		WithError("INSERT INTO t VALUES (1)", &hrana.Error{Message: "UNIQUE constraint failed", Code: strPtr("SQLITE_CONSTRAINT")})
	client := newBatchClient(stream)

	results, err := client.ExecuteBatch(context.Background(), []Statement{
		NewStatement("SELECT 1"),
		NewStatement("INSERT INTO t VALUES (1)"),
	})
	if errorCode(t, err) != Code("SQLITE_CONSTRAINT") {
		t.Fatalf("expected SQLITE_CONSTRAINT, got %v", err)
	}
	if results != nil {
		t.Fatalf("no partial results may escape a failed batch, got %v", results)
	}

	history := stream.SubmittedSQL()
	if countSQL(history, "COMMIT") != 0 {
		t.Errorf("COMMIT must not run after a failed statement: %v", history)
	}
	if countSQL(history, "ROLLBACK") != 1 {
		t.Errorf("expected a compensating ROLLBACK: %v", history)
	}
}

func TestExecuteBatchFirstFailureWins(t *testing.T) {
	stream := mock.NewStream().
		WithError("SELECT a", &hrana.Error{Message: "no such column: a", Code: strPtr("SQLITE_ERROR")})
	client := newBatchClient(stream)

	_, err := client.ExecuteBatch(context.Background(), []Statement{
		NewStatement("SELECT a"),
		NewStatement("SELECT 2"),
	})
	if errorCode(t, err) != Code("SQLITE_ERROR") {
		t.Fatalf("expected SQLITE_ERROR, got %v", err)
	}
	// The second statement was gated on the first and never ran.
	if got := countSQL(stream.SubmittedSQL(), "SELECT 2"); got != 0 {
		t.Errorf("statement after a failure must be skipped, ran %d times", got)
	}
}

func TestExecuteBatchRollbackFailureIgnored(t *testing.T) {
	stream := mock.NewStream().
		WithError("INSERT INTO t VALUES (1)", &hrana.Error{Message: "UNIQUE constraint failed", Code: strPtr("SQLITE_CONSTRAINT")}).
		WithError("ROLLBACK", &hrana.Error{Message: "cannot rollback", Code: strPtr("SQLITE_ERROR")})
	client := newBatchClient(stream)

	_, err := client.ExecuteBatch(context.Background(), []Statement{
		NewStatement("INSERT INTO t VALUES (1)"),
	})
	// The statement's own error surfaces; the ROLLBACK failure does not
	// mask it.
	if errorCode(t, err) != Code("SQLITE_CONSTRAINT") {
		t.Fatalf("expected SQLITE_CONSTRAINT, got %v", err)
	}
}

func TestExecuteBatchCommitFailure(t *testing.T) {
	stream := mock.NewStream().
		WithError("COMMIT", &hrana.Error{Message: "disk I/O error", Code: strPtr("SQLITE_IOERR")})
	client := newBatchClient(stream)

	results, err := client.ExecuteBatch(context.Background(), []Statement{
		NewStatement("SELECT 1"),
	})
	if errorCode(t, err) != Code("SQLITE_IOERR") {
		t.Fatalf("expected SQLITE_IOERR, got %v", err)
	}
	if results != nil {
		t.Fatalf("no results may escape when COMMIT fails, got %v", results)
	}
}

func TestExecuteBatchStreamFailure(t *testing.T) {
	stream := mock.NewStream().
		WithBatchError(&transport.SocketError{Message: "connection reset"})
	client := newBatchClient(stream)

	_, err := client.ExecuteBatch(context.Background(), []Statement{
		NewStatement("SELECT 1"),
	})
	if errorCode(t, err) != CodeHranaWebsocketError {
		t.Fatalf("expected HRANA_WEBSOCKET_ERROR, got %v", err)
	}
	if !stream.Closed() {
		t.Error("batch must close its stream on failure")
	}
}

// emptyBatchStream simulates a server that acknowledges the batch but
// reports no outcome for any step.
type emptyBatchStream struct {
	*mock.Stream
}

func (s *emptyBatchStream) ExecuteBatch(ctx context.Context, batch *hrana.Batch) (*hrana.BatchResult, error) {
	count := len(batch.Steps)
	return &hrana.BatchResult{
		StepResults: make([]*hrana.StmtResult, count),
		StepErrors:  make([]*hrana.Error, count),
	}, nil
}

func TestExecuteBatchMissingResult(t *testing.T) {
	client := newBatchClient(&emptyBatchStream{Stream: mock.NewStream()})

	_, err := client.ExecuteBatch(context.Background(), []Statement{
		NewStatement("SELECT 1"),
	})
	if errorCode(t, err) != CodeServerError {
		t.Fatalf("a silently skipped step must surface as SERVER_ERROR, got %v", err)
	}
}
