package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/giovannibenussi/libsql-client-go/hrana"
	"github.com/giovannibenussi/libsql-client-go/mapper"
	"github.com/giovannibenussi/libsql-client-go/transport"
)

const (
	beginSQL    = "BEGIN"
	commitSQL   = "COMMIT"
	rollbackSQL = "ROLLBACK"
)

// startedOutcome is the shared outcome of the lazily issued BEGIN: resolved
// exactly once, read by arbitrarily many waiters. It is the only state
// shared across concurrent callers of Execute.
type startedOutcome struct {
	done chan struct{}
	err  error
}

func newStartedOutcome() *startedOutcome {
	return &startedOutcome{done: make(chan struct{})}
}

// resolve must be called exactly once.
func (o *startedOutcome) resolve(err error) {
	o.err = err
	close(o.done)
}

func (o *startedOutcome) wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Transaction is an interactive transaction: statements are submitted one
// at a time, potentially across multiple round trips. It exclusively owns
// one stream for its lifetime; closing the transaction always closes the
// stream.
//
// BEGIN is issued lazily on the first Execute, batched with that call's
// statement so the first statement costs a single round trip.
type Transaction struct {
	id        string
	stream    transport.Stream
	mapper    *mapper.ValueMapper
	logger    Logger
	startedAt time.Time

	mu      sync.Mutex
	started *startedOutcome
	closed  bool
	cache   *StatementCache
}

func newTransaction(stream transport.Stream, cacheSize int, logger Logger) *Transaction {
	id := uuid.NewString()
	return &Transaction{
		id:        id,
		stream:    stream,
		mapper:    mapper.NewValueMapper(),
		logger:    logger.WithFields(String("tx_id", id)),
		startedAt: time.Now(),
		cache:     NewStatementCache(cacheSize),
	}
}

// ID returns the transaction identifier.
func (tx *Transaction) ID() string {
	return tx.id
}

// Execute runs one statement inside the transaction.
//
// On the first call, BEGIN and the statement travel together in one
// conditional batch. Concurrent calls against a not-yet-started transaction
// all funnel through the shared started outcome, so at most one BEGIN is
// ever issued. If BEGIN fails the transaction is permanently closed and
// every waiter observes the same error; if the caller's own statement fails
// the transaction stays open.
func (tx *Transaction) Execute(ctx context.Context, stmt Statement) (*ResultSet, error) {
	wireStmt, err := stmt.toHrana(tx.mapper, true)
	if err != nil {
		return nil, err
	}

	tx.mu.Lock()
	if tx.closed || tx.stream.Closed() {
		outcome := tx.started
		tx.mu.Unlock()
		// A transaction closed by a failed BEGIN reports that failure,
		// not a generic closed error.
		if outcome != nil {
			if err := outcome.wait(ctx); err != nil {
				return nil, err
			}
		}
		return nil, errTransactionClosed()
	}
	if tx.started == nil {
		outcome := newStartedOutcome()
		tx.started = outcome
		tx.mu.Unlock()
		return tx.executeFirst(ctx, wireStmt, outcome)
	}
	outcome := tx.started
	tx.mu.Unlock()

	// Blocking wait, not a retry: statements are never skipped or
	// reordered relative to submission order on this stream.
	if err := outcome.wait(ctx); err != nil {
		return nil, err
	}
	return tx.executeDirect(ctx, stmt.SQL, wireStmt)
}

// executeFirst issues BEGIN and the caller's statement in one round trip,
// the statement gated on BEGIN succeeding.
func (tx *Transaction) executeFirst(ctx context.Context, wireStmt *hrana.Stmt, outcome *startedOutcome) (*ResultSet, error) {
	batch := transport.NewBatch(tx.stream)
	begin := batch.Step()
	begin.Run(beginSQL)
	own := batch.Step()
	own.Condition(transport.StepOK(begin))
	own.Query(wireStmt)

	if err := batch.Execute(ctx); err != nil {
		mapped := mapError(err)
		tx.failBegin(outcome, mapped)
		return nil, mapped
	}

	if _, ran, err := begin.Outcome(); err != nil || !ran {
		if err == nil {
			err = errServerMissingResult()
		}
		mapped := mapError(err)
		tx.failBegin(outcome, mapped)
		return nil, mapped
	}

	outcome.resolve(nil)
	tx.logger.Debug("transaction started")

	result, ran, err := own.Outcome()
	if err != nil {
		return nil, mapError(err)
	}
	if !ran || result == nil {
		return nil, errServerMissingResult()
	}
	return newResultSet(result, tx.mapper)
}

// failBegin closes the transaction permanently: a failed BEGIN leaves
// nothing to recover. The outcome resolves after the close so waiters wake
// to a consistent closed state.
func (tx *Transaction) failBegin(outcome *startedOutcome, err error) {
	tx.logger.Warn("BEGIN failed, closing transaction", ErrorField("error", err))
	tx.Close()
	outcome.resolve(err)
}

func (tx *Transaction) executeDirect(ctx context.Context, sql string, wireStmt *hrana.Stmt) (*ResultSet, error) {
	tx.adaptForCaching(sql, wireStmt)
	result, err := tx.stream.Submit(wireStmt).Await(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return newResultSet(result, tx.mapper)
}

// adaptForCaching swaps the SQL text for a server-stored sql id on streams
// that support storage. A sql id is only valid on the stream it was stored
// on, which is exactly this transaction's stream.
func (tx *Transaction) adaptForCaching(sql string, wireStmt *hrana.Stmt) {
	storer, ok := tx.stream.(transport.SQLStorer)
	if !ok {
		return
	}
	key := Fingerprint(sql)

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if id, ok := tx.cache.Get(key); ok {
		wireStmt.SQL = nil
		wireStmt.SQLID = &id
		return
	}
	if id, ok := storer.StoreSQL(sql); ok {
		tx.cache.Put(key, id)
		wireStmt.SQL = nil
		wireStmt.SQLID = &id
	}
}

// Commit commits the transaction and closes it.
//
// A COMMIT never races ahead of an unresolved BEGIN. The stream's graceful
// close is requested right after the COMMIT is submitted, and the response
// is awaited before the transport is torn down.
func (tx *Transaction) Commit(ctx context.Context) error {
	defer tx.Close()

	tx.mu.Lock()
	if tx.closed || tx.stream.Closed() {
		tx.mu.Unlock()
		return errTransactionClosed()
	}
	outcome := tx.started
	tx.mu.Unlock()

	if outcome == nil {
		// Never started: nothing to commit.
		return nil
	}

	if err := outcome.wait(ctx); err != nil {
		return err
	}

	pending := tx.stream.Submit(hrana.NewStmt(commitSQL, false))
	tx.stream.CloseGracefully()
	if _, err := pending.Await(ctx); err != nil {
		return mapError(err)
	}

	tx.logger.Debug("transaction committed", Duration("duration", time.Since(tx.startedAt)))
	return nil
}

// Rollback rolls back the transaction and closes it. Idempotent: on a
// closed transaction or a transaction that never started it returns nil
// without sending ROLLBACK.
func (tx *Transaction) Rollback(ctx context.Context) error {
	defer tx.Close()

	tx.mu.Lock()
	if tx.closed || tx.stream.Closed() {
		tx.mu.Unlock()
		return nil
	}
	outcome := tx.started
	tx.mu.Unlock()

	if outcome == nil {
		// Never started: nothing to undo.
		return nil
	}

	// Deliberately not waiting for a pending BEGIN: a ROLLBACK sent
	// before BEGIN resolves, or after it failed, is harmless.
	pending := tx.stream.Submit(hrana.NewStmt(rollbackSQL, false))
	tx.stream.CloseGracefully()
	if _, err := pending.Await(ctx); err != nil {
		return mapError(err)
	}

	tx.logger.Debug("transaction rolled back", Duration("duration", time.Since(tx.startedAt)))
	return nil
}

// Close releases the transaction and aborts its stream. Safe to call
// multiple times.
func (tx *Transaction) Close() {
	tx.mu.Lock()
	if tx.closed {
		tx.mu.Unlock()
		return
	}
	tx.closed = true
	tx.mu.Unlock()

	_ = tx.stream.Close()
	tx.logger.Debug("transaction closed", Duration("lifetime", time.Since(tx.startedAt)))
}

// Closed reports whether the transaction has been closed.
func (tx *Transaction) Closed() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.closed
}

// State returns the current lifecycle state.
func (tx *Transaction) State() TxState {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	switch {
	case tx.closed:
		return TxClosed
	case tx.started == nil:
		return TxNotStarted
	default:
		select {
		case <-tx.started.done:
			if tx.started.err != nil {
				return TxClosed
			}
			return TxStarted
		default:
			return TxStarting
		}
	}
}
