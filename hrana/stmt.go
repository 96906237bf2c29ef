package hrana

// Stmt is a single SQL statement with bound arguments. Exactly one of SQL
// and SQLID must be set; SQLID references a text previously stored on the
// stream with a store_sql request.
type Stmt struct {
	SQL       *string    `json:"sql,omitempty"`
	SQLID     *int32     `json:"sql_id,omitempty"`
	Args      []Value    `json:"args,omitempty"`
	NamedArgs []NamedArg `json:"named_args,omitempty"`
	WantRows  bool       `json:"want_rows"`
}

// NamedArg binds a value to a named placeholder.
type NamedArg struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// NewStmt creates a statement from SQL text.
func NewStmt(sql string, wantRows bool) *Stmt {
	return &Stmt{SQL: &sql, WantRows: wantRows}
}
