package mongodriver

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported is returned when the client generation cannot
	// represent the requested call.
	ErrNotSupported = errors.New("mongodriver: not supported by this client generation")

	// ErrUnknownHandle is returned for handles of neither generation.
	ErrUnknownHandle = errors.New("mongodriver: unrecognized database handle")

	ErrUnknownOperation = errors.New("mongodriver: unknown operation")
)

// ExecError is a failed operation together with its shell rendering.
type ExecError struct {
	Op        Operation
	Statement string
	Err       error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("mongodriver: %s: %v (query: %s)", e.Op, e.Err, e.Statement)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
