package transport

import (
	"context"

	"github.com/giovannibenussi/libsql-client-go/hrana"
)

// Batch builds an ordered sequence of conditionally gated steps and submits
// them to a stream as one round trip. Steps are write-once: declared,
// executed and resolved exactly once.
type Batch struct {
	stream Stream
	steps  []*Step
}

// NewBatch creates an empty batch bound to a stream.
func NewBatch(stream Stream) *Batch {
	return &Batch{stream: stream}
}

// Step appends a new step to the batch and returns it for declaration.
func (b *Batch) Step() *Step {
	step := &Step{index: int32(len(b.steps))}
	b.steps = append(b.steps, step)
	return step
}

// Execute submits all declared steps in one round trip and distributes the
// per-step outcomes. After it returns nil, every step resolves to exactly
// one of ok, error or not-run.
func (b *Batch) Execute(ctx context.Context) error {
	wire := &hrana.Batch{Steps: make([]hrana.BatchStep, len(b.steps))}
	for i, step := range b.steps {
		wire.Steps[i] = hrana.BatchStep{Stmt: *step.stmt, Condition: step.cond}
	}

	result, err := b.stream.ExecuteBatch(ctx, wire)
	if err != nil {
		return err
	}

	for i, step := range b.steps {
		if i < len(result.StepResults) && result.StepResults[i] != nil {
			step.ran = true
			step.result = result.StepResults[i]
		} else if i < len(result.StepErrors) && result.StepErrors[i] != nil {
			step.ran = true
			step.err = result.StepErrors[i]
		}
	}
	return nil
}

// Step is one statement inside a batch.
type Step struct {
	index  int32
	stmt   *hrana.Stmt
	cond   *hrana.BatchCondition
	result *hrana.StmtResult
	err    error
	ran    bool
}

// Condition gates the step on a boolean expression over earlier steps.
func (s *Step) Condition(cond *hrana.BatchCondition) {
	s.cond = cond
}

// Run declares a statement whose rows are not wanted.
func (s *Step) Run(sql string) {
	s.stmt = hrana.NewStmt(sql, false)
}

// Query declares a statement whose rows are wanted.
func (s *Step) Query(stmt *hrana.Stmt) {
	stmt.WantRows = true
	s.stmt = stmt
}

// Outcome reports the resolved outcome of the step after Execute. A step
// whose condition did not hold has ran == false; a step that ran carries
// either a result or an error.
func (s *Step) Outcome() (result *hrana.StmtResult, ran bool, err error) {
	return s.result, s.ran, s.err
}

// StepOK builds a condition that holds when the given step succeeded.
func StepOK(step *Step) *hrana.BatchCondition {
	index := step.index
	return &hrana.BatchCondition{Type: hrana.CondOK, Step: &index}
}

// Not negates a condition.
func Not(cond *hrana.BatchCondition) *hrana.BatchCondition {
	return &hrana.BatchCondition{Type: hrana.CondNot, Cond: cond}
}
