// Package client provides a libsql database client speaking the Hrana
// protocol over WebSocket or HTTP, with interactive transactions, atomic
// batches and one-shot statement execution.
package client

import (
	"context"
	"sync/atomic"

	"github.com/giovannibenussi/libsql-client-go/mapper"
	"github.com/giovannibenussi/libsql-client-go/transport"
	"github.com/giovannibenussi/libsql-client-go/transport/hranahttp"
	"github.com/giovannibenussi/libsql-client-go/transport/ws"
)

// Client is the entry point of the library. It is cheap and holds no
// connection itself: every transaction, batch and one-shot execute opens a
// fresh stream through the configured factory, so Client is safe for
// concurrent use.
type Client struct {
	factory transport.Factory
	opts    ClientOptions
	logger  Logger
	mapper  *mapper.ValueMapper
	closed  atomic.Bool
}

// Connect parses the database URL, selects the transport it names and
// returns a client. No network traffic happens until the first operation.
func Connect(rawURL string, opts ClientOptions) (*Client, error) {
	cfg, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultOptions().ConnectTimeout
	}
	if opts.StatementCacheSize <= 0 {
		opts.StatementCacheSize = DefaultOptions().StatementCacheSize
	}
	authToken := cfg.AuthToken
	if opts.AuthToken != "" {
		authToken = opts.AuthToken
	}

	logger := opts.Logger
	if logger == nil {
		if opts.EnableLogging {
			logger = NewLogger(opts.LogLevel, nil)
		} else {
			logger = NewNoopLogger()
		}
	}
	logger = logger.WithFields(String("host", cfg.Host))

	var factory transport.Factory
	switch cfg.Scheme {
	case "ws", "wss":
		wsOpts := ws.Options{URL: cfg.URL(), AuthToken: authToken, HTTPClient: opts.HTTPClient}
		timeout := opts.ConnectTimeout
		factory = func(ctx context.Context) (transport.Stream, error) {
			dialCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return ws.Connect(dialCtx, wsOpts)
		}
	case "http", "https":
		httpOpts := hranahttp.Options{URL: cfg.URL(), AuthToken: authToken, HTTPClient: opts.HTTPClient}
		factory = func(ctx context.Context) (transport.Stream, error) {
			return hranahttp.New(httpOpts), nil
		}
	}

	return &Client{
		factory: factory,
		opts:    opts,
		logger:  logger,
		mapper:  mapper.NewValueMapper(),
	}, nil
}

// NewClient builds a client around an explicit stream factory. Intended for
// tests and for callers that manage their own transport.
func NewClient(factory transport.Factory, opts ClientOptions) *Client {
	if opts.StatementCacheSize <= 0 {
		opts.StatementCacheSize = DefaultOptions().StatementCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = NewNoopLogger()
	}
	return &Client{
		factory: factory,
		opts:    opts,
		logger:  logger,
		mapper:  mapper.NewValueMapper(),
	}
}

// Execute runs a single statement outside any transaction, in autocommit
// mode, on a stream opened just for it.
func (c *Client) Execute(ctx context.Context, stmt Statement) (*ResultSet, error) {
	stream, err := c.openStream(ctx)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	wireStmt, err := stmt.toHrana(c.mapper, true)
	if err != nil {
		return nil, err
	}
	result, err := stream.Submit(wireStmt).Await(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return newResultSet(result, c.mapper)
}

// ExecuteBatch runs the statements as one atomic transaction in a single
// round trip. Either every statement commits or none do; results come back
// in statement order.
func (c *Client) ExecuteBatch(ctx context.Context, stmts []Statement) ([]*ResultSet, error) {
	stream, err := c.openStream(ctx)
	if err != nil {
		return nil, err
	}
	return runBatch(ctx, stream, stmts, c.mapper, c.logger)
}

// Transaction opens an interactive transaction on a dedicated stream. The
// caller must finish it with Commit, Rollback or Close.
func (c *Client) Transaction(ctx context.Context) (*Transaction, error) {
	stream, err := c.openStream(ctx)
	if err != nil {
		return nil, err
	}
	tx := newTransaction(stream, c.opts.StatementCacheSize, c.logger)
	c.logger.Debug("transaction opened", String("tx_id", tx.ID()))
	return tx, nil
}

// Close marks the client closed. Streams already handed out to live
// transactions keep working until those transactions finish.
func (c *Client) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *Client) openStream(ctx context.Context) (transport.Stream, error) {
	if c.closed.Load() {
		return nil, &Error{Code: CodeHranaClosedError, Message: "the client is closed"}
	}
	stream, err := c.factory(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return stream, nil
}
