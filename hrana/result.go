package hrana

// Col describes one result column. The server may omit the name for
// unnamed expressions.
type Col struct {
	Name     *string `json:"name"`
	Decltype *string `json:"decltype,omitempty"`
}

// StmtResult is the outcome of a successfully executed statement.
// LastInsertRowID is a decimal string when present; the server omits it for
// statements that did not insert a row.
type StmtResult struct {
	Cols             []Col     `json:"cols"`
	Rows             [][]Value `json:"rows"`
	AffectedRowCount uint64    `json:"affected_row_count"`
	LastInsertRowID  *string   `json:"last_insert_rowid,omitempty"`
}
