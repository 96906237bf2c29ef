// Package mock provides a scriptable in-memory stream for tests. Batch
// conditions are evaluated locally with the same semantics the server
// applies: steps run in declaration order and a step whose condition does
// not hold is skipped.
package mock

import (
	"context"
	"sync"

	"github.com/giovannibenussi/libsql-client-go/hrana"
	"github.com/giovannibenussi/libsql-client-go/transport"
)

// Stream implements transport.Stream against scripted outcomes keyed by SQL
// text.
type Stream struct {
	mu sync.Mutex

	// Behavior configuration
	rules         map[string]outcome
	defaultResult *hrana.StmtResult
	batchErr      error
	sqlStore      bool

	// SQL-id store
	sqlTexts  map[int32]string
	nextSQLID int32

	// Call tracking
	submitted      []string
	batches        []*hrana.Batch
	roundTrips     int
	closeCalls     int
	gracefulCloses int
	storeCalls     int
	closed         bool
}

type outcome struct {
	result *hrana.StmtResult
	err    error
}

// NewStream creates a mock stream. Unmatched statements succeed with an
// empty execute result.
func NewStream() *Stream {
	return &Stream{
		rules:         make(map[string]outcome),
		defaultResult: &hrana.StmtResult{},
		sqlStore:      true,
		sqlTexts:      make(map[int32]string),
		nextSQLID:     1,
	}
}

// WithResult scripts a successful result for a SQL text.
func (s *Stream) WithResult(sql string, result *hrana.StmtResult) *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[sql] = outcome{result: result}
	return s
}

// WithError scripts a failure for a SQL text. A *hrana.Error becomes a
// per-step error inside batches; any other error fails the operation as a
// stream-level failure.
func (s *Stream) WithError(sql string, err error) *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[sql] = outcome{err: err}
	return s
}

// WithBatchError makes every batch round trip fail as a whole.
func (s *Stream) WithBatchError(err error) *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchErr = err
	return s
}

// WithoutSQLStore disables the store_sql capability, mimicking an HTTP
// stream.
func (s *Stream) WithoutSQLStore() *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sqlStore = false
	return s
}

// Submit implements transport.Stream.
func (s *Stream) Submit(stmt *hrana.Stmt) transport.Pending {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &pending{err: &transport.ClosedError{Message: "stream is closed"}}
	}

	sql := s.textOf(stmt)
	s.submitted = append(s.submitted, sql)
	s.roundTrips++

	o := s.lookup(sql)
	return &pending{result: o.result, err: o.err}
}

// ExecuteBatch implements transport.Stream.
func (s *Stream) ExecuteBatch(ctx context.Context, batch *hrana.Batch) (*hrana.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &transport.ClosedError{Message: "stream is closed"}
	}

	s.batches = append(s.batches, batch)
	s.roundTrips++

	if s.batchErr != nil {
		return nil, s.batchErr
	}

	count := len(batch.Steps)
	result := &hrana.BatchResult{
		StepResults: make([]*hrana.StmtResult, count),
		StepErrors:  make([]*hrana.Error, count),
	}
	outcomes := make([]bool, count)

	for i, step := range batch.Steps {
		if step.Condition != nil && !evalCondition(step.Condition, outcomes) {
			continue
		}
		sql := s.textOf(&step.Stmt)
		s.submitted = append(s.submitted, sql)

		o := s.lookup(sql)
		if o.err != nil {
			if hranaErr, ok := o.err.(*hrana.Error); ok {
				result.StepErrors[i] = hranaErr
				continue
			}
			return nil, o.err
		}
		result.StepResults[i] = o.result
		outcomes[i] = true
	}
	return result, nil
}

// StoreSQL implements transport.SQLStorer.
func (s *Stream) StoreSQL(sql string) (int32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sqlStore || s.closed {
		return 0, false
	}
	s.storeCalls++
	id := s.nextSQLID
	s.nextSQLID++
	s.sqlTexts[id] = sql
	return id, true
}

// Closed implements transport.Stream.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close implements transport.Stream.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	s.closed = true
	return nil
}

// CloseGracefully implements transport.Stream. The mock resolves every
// operation synchronously, so there is never anything to drain.
func (s *Stream) CloseGracefully() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gracefulCloses++
	s.closed = true
}

// SubmittedSQL returns the SQL texts that reached the stream, in execution
// order, including batch steps that actually ran.
func (s *Stream) SubmittedSQL() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]string, len(s.submitted))
	copy(history, s.submitted)
	return history
}

// Batches returns the batches submitted to the stream.
func (s *Stream) Batches() []*hrana.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]*hrana.Batch, len(s.batches))
	copy(history, s.batches)
	return history
}

// RoundTrips returns the number of network round trips the stream has
// performed.
func (s *Stream) RoundTrips() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roundTrips
}

// CloseCalls returns the number of times Close was called.
func (s *Stream) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

// GracefulCloses returns the number of times CloseGracefully was called.
func (s *Stream) GracefulCloses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gracefulCloses
}

// StoreCalls returns the number of successful StoreSQL calls.
func (s *Stream) StoreCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeCalls
}

// textOf resolves a statement to its SQL text, following sql_id references
// through the store. Must be called with s.mu held.
func (s *Stream) textOf(stmt *hrana.Stmt) string {
	if stmt.SQL != nil {
		return *stmt.SQL
	}
	if stmt.SQLID != nil {
		return s.sqlTexts[*stmt.SQLID]
	}
	return ""
}

// lookup must be called with s.mu held.
func (s *Stream) lookup(sql string) outcome {
	if o, ok := s.rules[sql]; ok {
		return o
	}
	return outcome{result: s.defaultResult}
}

func evalCondition(cond *hrana.BatchCondition, outcomes []bool) bool {
	switch cond.Type {
	case hrana.CondOK:
		return cond.Step != nil && int(*cond.Step) < len(outcomes) && outcomes[*cond.Step]
	case hrana.CondNot:
		return cond.Cond != nil && !evalCondition(cond.Cond, outcomes)
	default:
		return false
	}
}

type pending struct {
	result *hrana.StmtResult
	err    error
}

// Await implements transport.Pending.
func (p *pending) Await(ctx context.Context) (*hrana.StmtResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.result, p.err
}
