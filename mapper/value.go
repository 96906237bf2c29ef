// Package mapper handles type coercion between Hrana wire values and native
// Go values.
package mapper

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/giovannibenussi/libsql-client-go/hrana"
)

// ValueMapper converts statement arguments to the wire encoding and row
// cells back to native Go values.
type ValueMapper struct{}

// NewValueMapper creates a new value mapper.
func NewValueMapper() *ValueMapper {
	return &ValueMapper{}
}

// ToWire converts a native Go value into a Hrana value.
func (m *ValueMapper) ToWire(arg any) (hrana.Value, error) {
	switch v := arg.(type) {
	case nil:
		return hrana.Value{Type: hrana.TypeNull}, nil
	case bool:
		// SQLite convention: booleans are stored as 0/1 integers.
		if v {
			return hrana.Value{Type: hrana.TypeInteger, Value: "1"}, nil
		}
		return hrana.Value{Type: hrana.TypeInteger, Value: "0"}, nil
	case int:
		return hrana.Value{Type: hrana.TypeInteger, Value: strconv.FormatInt(int64(v), 10)}, nil
	case int32:
		return hrana.Value{Type: hrana.TypeInteger, Value: strconv.FormatInt(int64(v), 10)}, nil
	case int64:
		return hrana.Value{Type: hrana.TypeInteger, Value: strconv.FormatInt(v, 10)}, nil
	case uint64:
		if v > math.MaxInt64 {
			return hrana.Value{}, fmt.Errorf("uint64 value %d overflows a 64-bit SQL integer", v)
		}
		return hrana.Value{Type: hrana.TypeInteger, Value: strconv.FormatUint(v, 10)}, nil
	case float32:
		return hrana.Value{Type: hrana.TypeFloat, Value: float64(v)}, nil
	case float64:
		return hrana.Value{Type: hrana.TypeFloat, Value: v}, nil
	case string:
		return hrana.Value{Type: hrana.TypeText, Value: v}, nil
	case []byte:
		return hrana.Value{Type: hrana.TypeBlob, Base64: base64.StdEncoding.EncodeToString(v)}, nil
	case time.Time:
		return hrana.Value{Type: hrana.TypeText, Value: v.Format(time.RFC3339Nano)}, nil
	default:
		return hrana.Value{}, fmt.Errorf("cannot bind %T as a SQL argument", arg)
	}
}

// FromWire converts a Hrana value into a native Go value: int64, float64,
// string, []byte or nil.
func (m *ValueMapper) FromWire(v hrana.Value) (any, error) {
	switch v.Type {
	case hrana.TypeNull:
		return nil, nil
	case hrana.TypeInteger:
		switch raw := v.Value.(type) {
		case string:
			i, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to int: %w", raw, err)
			}
			return i, nil
		case float64:
			// Some servers emit small integers as JSON numbers.
			return int64(raw), nil
		default:
			return nil, fmt.Errorf("cannot convert %T to int", v.Value)
		}
	case hrana.TypeFloat:
		f, ok := v.Value.(float64)
		if !ok {
			return nil, fmt.Errorf("cannot convert %T to float", v.Value)
		}
		return f, nil
	case hrana.TypeText:
		s, ok := v.Value.(string)
		if !ok {
			return nil, fmt.Errorf("cannot convert %T to text", v.Value)
		}
		return s, nil
	case hrana.TypeBlob:
		b, err := base64.StdEncoding.DecodeString(v.Base64)
		if err != nil {
			return nil, fmt.Errorf("cannot decode blob: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown value type %q", v.Type)
	}
}

// RowFromWire converts one result row cell by cell.
func (m *ValueMapper) RowFromWire(row []hrana.Value) ([]any, error) {
	result := make([]any, len(row))
	for i, cell := range row {
		mapped, err := m.FromWire(cell)
		if err != nil {
			return nil, fmt.Errorf("error mapping row cell %d: %w", i, err)
		}
		result[i] = mapped
	}
	return result, nil
}
