package solver

import (
	"errors"
	"fmt"
)

var (
	ErrAPIKeyMissing = errors.New("solver API key is not configured")
	// ErrRequest matches every RequestError via errors.Is.
	ErrRequest = errors.New("solver request failed")
	// ErrTimeout is returned when a task is still pending after the poll budget.
	ErrTimeout = errors.New("solver task timed out")
)

// RequestError describes a failed call to the solving service, either a
// transport failure or a non-zero errorId in the response.
type RequestError struct {
	Op          string // "createTask" or "getTaskResult"
	ErrorID     int
	Code        string
	Description string
	Err         error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solver %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("solver %s: errorId=%d %s: %s", e.Op, e.ErrorID, e.Code, e.Description)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is().
func (e *RequestError) Is(target error) bool {
	return target == ErrRequest
}
