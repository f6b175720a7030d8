package aggregate

import (
	"context"
	"fmt"
)

// Service is a backend capability the aggregator fans out to. Implementations
// must be safe for concurrent use and must not block in Retrieve: ordinary
// failures are reported by rejecting the returned future.
type Service interface {
	ID() string
	Retrieve(ctx context.Context, input string) *Future
}

// Call pairs one Service with one input for a single dispatch.
type Call struct {
	Index   int
	Service string
	Input   string
	future  *Future
}

func (c *Call) Future() *Future {
	return c.future
}

// outcome must only be called once the future is terminal.
func (c *Call) outcome() Outcome {
	v, err := c.future.Result()
	if err != nil {
		return Outcome{Index: c.Index, Service: c.Service, Input: c.Input, Err: err}
	}
	return Outcome{Index: c.Index, Service: c.Service, Input: c.Input, Value: v}
}

// Outcome is the terminal result of one Call. Err == nil tags a success.
type Outcome struct {
	Index   int
	Service string
	Input   string
	Value   string
	Err     error
}

func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

func (o Outcome) callError() *CallError {
	if o.Err == nil {
		return nil
	}
	return &CallError{Index: o.Index, Service: o.Service, Input: o.Input, Err: o.Err}
}

// Dispatch launches one call per (service, input) pair. Nothing is launched
// when the lists are malformed.
func Dispatch(ctx context.Context, services []Service, inputs []string) ([]*Call, error) {
	if len(services) != len(inputs) {
		return nil, fmt.Errorf("%w: %d services, %d inputs", ErrLengthMismatch, len(services), len(inputs))
	}
	for i, s := range services {
		if s == nil {
			return nil, fmt.Errorf("%w at index %d", ErrNilService, i)
		}
	}

	calls := make([]*Call, len(services))
	for i, s := range services {
		calls[i] = &Call{
			Index:   i,
			Service: s.ID(),
			Input:   inputs[i],
			future:  retrieve(ctx, s, inputs[i]),
		}
	}
	return calls, nil
}

// Broadcast dispatches the same input to every service.
func Broadcast(ctx context.Context, services []Service, input string) ([]*Call, error) {
	inputs := make([]string, len(services))
	for i := range inputs {
		inputs[i] = input
	}
	return Dispatch(ctx, services, inputs)
}

func retrieve(ctx context.Context, s Service, input string) (f *Future) {
	defer func() {
		if r := recover(); r != nil {
			f = Failed(fmt.Errorf("retrieve panicked: %v", r))
		}
	}()
	f = s.Retrieve(ctx, input)
	if f == nil {
		f = Failed(ErrNilFuture)
	}
	return f
}
