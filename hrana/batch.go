package hrana

// Batch is an ordered sequence of conditionally gated statements that the
// server evaluates in one round trip.
type Batch struct {
	Steps []BatchStep `json:"steps"`
}

// BatchStep is one statement in a batch with an optional gate condition.
type BatchStep struct {
	Stmt      Stmt            `json:"stmt"`
	Condition *BatchCondition `json:"condition,omitempty"`
}

// BatchCondition is a boolean expression over earlier step outcomes.
// Type selects the variant: "ok" and "error" reference a step by index,
// "not" negates Cond, "and"/"or" combine Conds.
type BatchCondition struct {
	Type  string           `json:"type"`
	Step  *int32           `json:"step,omitempty"`
	Cond  *BatchCondition  `json:"cond,omitempty"`
	Conds []BatchCondition `json:"conds,omitempty"`
}

// Condition type tags.
const (
	CondOK    = "ok"
	CondError = "error"
	CondNot   = "not"
)

// BatchResult carries the per-step outcomes of an executed batch. The two
// slices are parallel to the submitted steps; a step whose entries are both
// nil was skipped because its condition did not hold.
type BatchResult struct {
	StepResults []*StmtResult `json:"step_results"`
	StepErrors  []*Error      `json:"step_errors"`
}
