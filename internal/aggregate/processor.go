package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fanin/internal/logger"
)

// Processor dispatches calls and reduces their outcomes under one of the
// aggregation policies. It holds no worker pool and no per-request state, so a
// single Processor may serve concurrent aggregations.
type Processor struct {
	log *logger.Logger
}

type Option func(*Processor)

func WithLogger(l *logger.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

func NewProcessor(opts ...Option) *Processor {
	p := &Processor{log: logger.Nop()}
	for _, apply := range opts {
		if apply != nil {
			apply(p)
		}
	}
	return p
}

// Join sends input to every service and joins the results with single spaces
// in request order. Any failed call fails the whole aggregation; the reported
// cause is the lowest-index failure.
func (p *Processor) Join(ctx context.Context, services []Service, input string) (string, error) {
	if ctx == nil {
		return "", errors.New("join: nil context")
	}
	calls, err := Broadcast(ctx, services, input)
	if err != nil {
		return "", fmt.Errorf("join: %w", err)
	}
	p.logDispatch("join", calls)

	outcomes, err := awaitAll(ctx, calls)
	if err != nil {
		return "", fmt.Errorf("join: %w", err)
	}
	for _, o := range outcomes {
		if ce := o.callError(); ce != nil {
			return "", ce
		}
	}
	return joinValues(outcomes), nil
}

// CompletionOrder sends input to every service and returns the values in the
// order the calls finished. The order is not stable across runs. Any failed
// call fails the whole aggregation and no values are returned.
func (p *Processor) CompletionOrder(ctx context.Context, services []Service, input string) ([]string, error) {
	if ctx == nil {
		return nil, errors.New("completion-order: nil context")
	}
	calls, err := Broadcast(ctx, services, input)
	if err != nil {
		return nil, fmt.Errorf("completion-order: %w", err)
	}
	p.logDispatch("completion-order", calls)

	outcomes, err := awaitCompletionOrder(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("completion-order: %w", err)
	}
	values := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if ce := o.callError(); ce != nil {
			return nil, ce
		}
		values = append(values, o.Value)
	}
	return values, nil
}

// FailFast pairs services[i] with inputs[i] and joins the results like Join.
// It resolves as soon as the first failure is observed; which failure is
// reported when several happen concurrently is unspecified.
func (p *Processor) FailFast(ctx context.Context, services []Service, inputs []string) (string, error) {
	if ctx == nil {
		return "", errors.New("fail-fast: nil context")
	}
	calls, err := Dispatch(ctx, services, inputs)
	if err != nil {
		return "", fmt.Errorf("fail-fast: %w", err)
	}
	p.logDispatch("fail-fast", calls)

	outcomes, err := awaitFailFast(ctx, calls)
	if err != nil {
		var ce *CallError
		if errors.As(err, &ce) {
			return "", ce
		}
		return "", fmt.Errorf("fail-fast: %w", err)
	}
	return joinValues(outcomes), nil
}

// Partial pairs services[i] with inputs[i] and returns the successful values
// in request order. Failed calls are dropped silently. An all-failing request
// yields an empty list, never an error.
func (p *Processor) Partial(ctx context.Context, services []Service, inputs []string) ([]string, error) {
	if ctx == nil {
		return nil, errors.New("partial: nil context")
	}
	calls, err := Dispatch(ctx, services, inputs)
	if err != nil {
		return nil, fmt.Errorf("partial: %w", err)
	}
	p.logDispatch("partial", calls)

	outcomes, err := awaitAll(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("partial: %w", err)
	}
	values := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.Succeeded() {
			p.logAbsorbed("partial", o)
			continue
		}
		values = append(values, o.Value)
	}
	return values, nil
}

// FailSoft pairs services[i] with inputs[i] and joins every slot in request
// order, substituting fallback for each failed call.
func (p *Processor) FailSoft(ctx context.Context, services []Service, inputs []string, fallback string) (string, error) {
	if ctx == nil {
		return "", errors.New("fail-soft: nil context")
	}
	calls, err := Dispatch(ctx, services, inputs)
	if err != nil {
		return "", fmt.Errorf("fail-soft: %w", err)
	}
	p.logDispatch("fail-soft", calls)

	outcomes, err := awaitAll(ctx, calls)
	if err != nil {
		return "", fmt.Errorf("fail-soft: %w", err)
	}
	tokens := make([]string, len(outcomes))
	for i, o := range outcomes {
		if !o.Succeeded() {
			p.logAbsorbed("fail-soft", o)
			tokens[i] = fallback
			continue
		}
		tokens[i] = o.Value
	}
	return strings.Join(tokens, " "), nil
}

func joinValues(outcomes []Outcome) string {
	values := make([]string, len(outcomes))
	for i, o := range outcomes {
		values[i] = o.Value
	}
	return strings.Join(values, " ")
}

func (p *Processor) logDispatch(policy string, calls []*Call) {
	ids := make([]string, len(calls))
	for i, c := range calls {
		ids[i] = c.Service
	}
	p.log.Debug("dispatched calls", "policy", policy, "calls", len(calls), "services", ids)
}

func (p *Processor) logAbsorbed(policy string, o Outcome) {
	p.log.Debug("absorbed call failure", "policy", policy, "index", o.Index, "service", o.Service, "error", o.Err)
}
