package aggregate

import (
	"errors"
	"fmt"
)

var (
	ErrLengthMismatch = errors.New("services and inputs must have equal length")
	ErrNilService     = errors.New("service is nil")
	ErrNilFuture      = errors.New("service returned a nil future")
	ErrPending        = errors.New("future is not resolved yet")
)

// CallError is the failure of a single dispatched call. It is the only error
// kind the failing policies surface for backend failures; Unwrap exposes the
// service's own cause.
type CallError struct {
	Index   int
	Service string
	Input   string
	Err     error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call %d to %s failed: %v", e.Index, e.Service, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}
