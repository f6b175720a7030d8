package service

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"fanin/internal/aggregate"
	"fanin/internal/config"
)

// Echo is an in-memory microservice that resolves to ID:UPPER(input), after a
// random delay of up to MaxDelay.
type Echo struct {
	id       string
	maxDelay time.Duration
}

func NewEcho(id string, maxDelay time.Duration) *Echo {
	return &Echo{id: id, maxDelay: maxDelay}
}

func newEchoFromSpec(_ context.Context, spec config.ServiceSpec, _ *Deps) (aggregate.Service, error) {
	var delay time.Duration
	if spec.Arg != "" {
		d, err := time.ParseDuration(spec.Arg)
		if err != nil {
			return nil, err
		}
		delay = d
	}
	return NewEcho(spec.ID, delay), nil
}

func (e *Echo) ID() string {
	return e.id
}

func (e *Echo) Retrieve(ctx context.Context, input string) *aggregate.Future {
	var delay time.Duration
	if e.maxDelay > 0 {
		delay = rand.N(e.maxDelay + 1)
	}
	if delay == 0 {
		return aggregate.Resolved(e.value(input))
	}

	return aggregate.Go(func() (string, error) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
		return e.value(input), nil
	})
}

func (e *Echo) value(input string) string {
	return e.id + ":" + strings.ToUpper(input)
}
