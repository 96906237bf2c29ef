package client

// TxState represents the lifecycle state of a transaction.
type TxState int

const (
	// TxNotStarted means no BEGIN has been issued yet.
	TxNotStarted TxState = iota
	// TxStarting means the BEGIN round trip is in flight.
	TxStarting
	// TxStarted means BEGIN succeeded and statements run directly.
	TxStarted
	// TxClosed is terminal: the stream is released and no further
	// statements are accepted.
	TxClosed
)

// String returns the string representation of the transaction state.
func (s TxState) String() string {
	switch s {
	case TxNotStarted:
		return "NOT_STARTED"
	case TxStarting:
		return "STARTING"
	case TxStarted:
		return "STARTED"
	case TxClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
