package client

import (
	"github.com/giovannibenussi/libsql-client-go/hrana"
	"github.com/giovannibenussi/libsql-client-go/mapper"
)

// Statement is SQL text plus parameter bindings, immutable once
// constructed. Positional and named bindings are mutually exclusive.
type Statement struct {
	SQL   string
	Args  []any
	Named map[string]any
}

// NewStatement creates a statement with positional arguments.
func NewStatement(sql string, args ...any) Statement {
	return Statement{SQL: sql, Args: args}
}

// NewNamedStatement creates a statement with named arguments.
func NewNamedStatement(sql string, named map[string]any) Statement {
	return Statement{SQL: sql, Named: named}
}

// toHrana converts the statement and its bindings into the wire shape.
func (s Statement) toHrana(m *mapper.ValueMapper, wantRows bool) (*hrana.Stmt, error) {
	stmt := hrana.NewStmt(s.SQL, wantRows)

	if len(s.Args) > 0 {
		stmt.Args = make([]hrana.Value, len(s.Args))
		for i, arg := range s.Args {
			value, err := m.ToWire(arg)
			if err != nil {
				return nil, &Error{
					Code:    CodeUnknown,
					Message: "failed to convert statement argument",
					Cause:   err,
				}
			}
			stmt.Args[i] = value
		}
	}

	for name, arg := range s.Named {
		value, err := m.ToWire(arg)
		if err != nil {
			return nil, &Error{
				Code:    CodeUnknown,
				Message: "failed to convert named statement argument",
				Cause:   err,
			}
		}
		stmt.NamedArgs = append(stmt.NamedArgs, hrana.NamedArg{Name: name, Value: value})
	}

	return stmt, nil
}
