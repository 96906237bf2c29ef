package client

import (
	"fmt"
	"strconv"

	"github.com/giovannibenussi/libsql-client-go/hrana"
	"github.com/giovannibenussi/libsql-client-go/mapper"
)

// ResultSet is the outcome of one statement: ordered column names, ordered
// rows of native Go values, the affected-row count and, when the statement
// inserted a row, the id of the last inserted row.
type ResultSet struct {
	Columns         []string
	Rows            [][]any
	RowsAffected    uint64
	LastInsertRowID *int64
}

// newResultSet maps a wire result into the caller-facing shape. Column
// names are copied verbatim except that an absent name becomes the empty
// string; an absent row id stays absent, never defaulted to zero.
func newResultSet(res *hrana.StmtResult, m *mapper.ValueMapper) (*ResultSet, error) {
	columns := make([]string, len(res.Cols))
	for i, col := range res.Cols {
		if col.Name != nil {
			columns[i] = *col.Name
		}
	}

	rows := make([][]any, len(res.Rows))
	for i, row := range res.Rows {
		mapped, err := m.RowFromWire(row)
		if err != nil {
			return nil, &Error{
				Code:    CodeHranaProtoError,
				Message: fmt.Sprintf("failed to decode row %d", i),
				Cause:   err,
			}
		}
		rows[i] = mapped
	}

	rs := &ResultSet{
		Columns:      columns,
		Rows:         rows,
		RowsAffected: res.AffectedRowCount,
	}

	if res.LastInsertRowID != nil {
		id, err := strconv.ParseInt(*res.LastInsertRowID, 10, 64)
		if err != nil {
			return nil, &Error{
				Code:    CodeHranaProtoError,
				Message: fmt.Sprintf("invalid last_insert_rowid %q", *res.LastInsertRowID),
				Cause:   err,
			}
		}
		rs.LastInsertRowID = &id
	}

	return rs, nil
}
