package client

import (
	"context"

	"github.com/giovannibenussi/libsql-client-go/mapper"
	"github.com/giovannibenussi/libsql-client-go/transport"
)

// runBatch executes the statements as one atomic transaction in a single
// round trip: BEGIN, each statement gated on its predecessor, COMMIT gated
// on the last statement, and a compensating ROLLBACK gated on COMMIT not
// succeeding. The stream is consumed: it is always closed on return.
//
// Results are all-or-nothing. If any statement fails, its error is
// returned and no partial results escape. A statement the server skipped
// without reporting an error surfaces as a server error rather than a
// silent gap.
func runBatch(ctx context.Context, stream transport.Stream, stmts []Statement, m *mapper.ValueMapper, logger Logger) ([]*ResultSet, error) {
	defer stream.Close()

	batch := transport.NewBatch(stream)

	begin := batch.Step()
	begin.Run(beginSQL)

	prev := begin
	stmtSteps := make([]*transport.Step, len(stmts))
	for i, stmt := range stmts {
		wireStmt, err := stmt.toHrana(m, true)
		if err != nil {
			return nil, err
		}
		step := batch.Step()
		step.Condition(transport.StepOK(prev))
		step.Query(wireStmt)
		stmtSteps[i] = step
		prev = step
	}

	commit := batch.Step()
	commit.Condition(transport.StepOK(prev))
	commit.Run(commitSQL)

	// The ROLLBACK outcome is deliberately never inspected: it exists
	// only to release server-side locks when COMMIT did not run.
	rollback := batch.Step()
	rollback.Condition(transport.Not(transport.StepOK(commit)))
	rollback.Run(rollbackSQL)

	if err := batch.Execute(ctx); err != nil {
		return nil, mapError(err)
	}

	if _, ran, err := begin.Outcome(); err != nil || !ran {
		if err == nil {
			err = errServerMissingResult()
		}
		return nil, mapError(err)
	}

	results := make([]*ResultSet, len(stmtSteps))
	for i, step := range stmtSteps {
		res, ran, err := step.Outcome()
		if err != nil {
			return nil, mapError(err)
		}
		if !ran || res == nil {
			return nil, errServerMissingResult()
		}
		rs, err := newResultSet(res, m)
		if err != nil {
			return nil, err
		}
		results[i] = rs
	}

	if _, ran, err := commit.Outcome(); err != nil || !ran {
		if err == nil {
			err = errServerMissingResult()
		}
		return nil, mapError(err)
	}

	logger.Debug("batch committed", Int("statements", len(stmts)))
	return results, nil
}
