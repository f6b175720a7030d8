package aggregate

import "context"

func init() {
	Register(joinPolicy{})
	Register(completionOrderPolicy{})
	Register(failFastPolicy{})
	Register(partialPolicy{})
	Register(failSoftPolicy{})
}

type joinPolicy struct{}

func (joinPolicy) ID() string        { return "join" }
func (joinPolicy) Title() string     { return "All-success join" }
func (joinPolicy) SharedInput() bool { return true }
func (joinPolicy) Description() string {
	return "Sends one input to every service and joins all values with spaces in request order. Any failure fails the run."
}

func (joinPolicy) Run(ctx context.Context, p *Processor, req Request) (Result, error) {
	input, err := req.sharedInput("join")
	if err != nil {
		return Result{}, err
	}
	text, err := p.Join(ctx, req.Services, input)
	if err != nil {
		return Result{}, err
	}
	return Result{Policy: "join", Kind: KindText, Text: text}, nil
}

type completionOrderPolicy struct{}

func (completionOrderPolicy) ID() string        { return "completion-order" }
func (completionOrderPolicy) Title() string     { return "Completion-order capture" }
func (completionOrderPolicy) SharedInput() bool { return true }
func (completionOrderPolicy) Description() string {
	return "Sends one input to every service and lists values in the order calls finish (varies between runs). Any failure fails the run."
}

func (completionOrderPolicy) Run(ctx context.Context, p *Processor, req Request) (Result, error) {
	input, err := req.sharedInput("completion-order")
	if err != nil {
		return Result{}, err
	}
	values, err := p.CompletionOrder(ctx, req.Services, input)
	if err != nil {
		return Result{}, err
	}
	return Result{Policy: "completion-order", Kind: KindList, Values: values}, nil
}

type failFastPolicy struct{}

func (failFastPolicy) ID() string        { return "fail-fast" }
func (failFastPolicy) Title() string     { return "Fail-fast" }
func (failFastPolicy) SharedInput() bool { return false }
func (failFastPolicy) Description() string {
	return "Pairs each service with its own input and joins values in request order. Resolves as failed on the first observed failure."
}

func (failFastPolicy) Run(ctx context.Context, p *Processor, req Request) (Result, error) {
	text, err := p.FailFast(ctx, req.Services, req.pairedInputs())
	if err != nil {
		return Result{}, err
	}
	return Result{Policy: "fail-fast", Kind: KindText, Text: text}, nil
}

type partialPolicy struct{}

func (partialPolicy) ID() string        { return "partial" }
func (partialPolicy) Title() string     { return "Partial-success filter" }
func (partialPolicy) SharedInput() bool { return false }
func (partialPolicy) Description() string {
	return "Pairs each service with its own input and lists only successful values in request order. Failures are dropped."
}

func (partialPolicy) Run(ctx context.Context, p *Processor, req Request) (Result, error) {
	values, err := p.Partial(ctx, req.Services, req.pairedInputs())
	if err != nil {
		return Result{}, err
	}
	return Result{Policy: "partial", Kind: KindList, Values: values}, nil
}

type failSoftPolicy struct{}

func (failSoftPolicy) ID() string        { return "fail-soft" }
func (failSoftPolicy) Title() string     { return "Fail-soft with fallback" }
func (failSoftPolicy) SharedInput() bool { return false }
func (failSoftPolicy) Description() string {
	return "Pairs each service with its own input and joins every slot in request order, writing the fallback for failed calls."
}

func (failSoftPolicy) Run(ctx context.Context, p *Processor, req Request) (Result, error) {
	text, err := p.FailSoft(ctx, req.Services, req.pairedInputs(), req.Fallback)
	if err != nil {
		return Result{}, err
	}
	return Result{Policy: "fail-soft", Kind: KindText, Text: text}, nil
}
