// Package transport defines the remote stream abstraction over which the
// client runs statements and batches against a Hrana server.
package transport

import (
	"context"

	"github.com/giovannibenussi/libsql-client-go/hrana"
)

// Stream is an ordered, stateful channel to a database endpoint. All
// operations submitted to one stream execute on the server in submission
// order; the stream itself serializes them.
type Stream interface {
	// Submit enqueues a statement without waiting for its response, so a
	// caller can pipeline further work before awaiting the outcome.
	Submit(stmt *hrana.Stmt) Pending

	// ExecuteBatch runs a whole batch in a single round trip.
	ExecuteBatch(ctx context.Context, batch *hrana.Batch) (*hrana.BatchResult, error)

	// Closed reports whether the stream no longer accepts work.
	Closed() bool

	// Close aborts the stream. Operations still in flight fail rather
	// than hang. Safe to call multiple times.
	Close() error

	// CloseGracefully stops accepting new work, waits for in-flight
	// operations to resolve and then releases the stream.
	CloseGracefully()
}

// Pending is the outcome of a submitted statement, resolved once the server
// responds.
type Pending interface {
	Await(ctx context.Context) (*hrana.StmtResult, error)
}

// SQLStorer is an optional Stream capability: storing a SQL text on the
// server so later statements can reference it by id instead of resending
// the text. WebSocket streams support it, HTTP streams do not.
type SQLStorer interface {
	StoreSQL(sql string) (int32, bool)
}

// Factory creates a fresh stream.
type Factory func(ctx context.Context) (Stream, error)
