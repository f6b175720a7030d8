package service

import (
	"context"
	"errors"

	"fanin/internal/aggregate"
	"fanin/internal/config"
)

const defaultFailMessage = "boom"

// Fail is a service whose every call fails with the same message.
type Fail struct {
	id  string
	err error
}

func NewFail(id, message string) *Fail {
	if message == "" {
		message = defaultFailMessage
	}
	return &Fail{id: id, err: errors.New(message)}
}

func newFailFromSpec(_ context.Context, spec config.ServiceSpec, _ *Deps) (aggregate.Service, error) {
	return NewFail(spec.ID, spec.Arg), nil
}

func (f *Fail) ID() string {
	return f.id
}

func (f *Fail) Retrieve(context.Context, string) *aggregate.Future {
	return aggregate.Failed(f.err)
}
