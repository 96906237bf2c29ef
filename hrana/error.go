package hrana

import "fmt"

// Error is a structured error returned by the server, either for a whole
// request or for an individual batch step. Code is machine readable and may
// be absent for generic failures.
type Error struct {
	Message string  `json:"message"`
	Code    *string `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != nil {
		return fmt.Sprintf("%s: %s", *e.Code, e.Message)
	}
	return e.Message
}
