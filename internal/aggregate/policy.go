package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Policy is a named aggregation mode that can be selected at runtime.
type Policy interface {
	ID() string
	Title() string
	Description() string
	// SharedInput reports whether the policy sends one input to every service
	// rather than pairing services with inputs.
	SharedInput() bool
	Run(ctx context.Context, p *Processor, req Request) (Result, error)
}

type Request struct {
	Services []Service
	// Inputs holds one input per service. A single input is broadcast to all
	// services; shared-input policies require exactly one.
	Inputs   []string
	Fallback string
}

func (r Request) sharedInput(policy string) (string, error) {
	if len(r.Inputs) != 1 {
		return "", fmt.Errorf("%s: expects exactly one shared input, got %d", policy, len(r.Inputs))
	}
	return r.Inputs[0], nil
}

func (r Request) pairedInputs() []string {
	if len(r.Inputs) == 1 && len(r.Services) != 1 {
		out := make([]string, len(r.Services))
		for i := range out {
			out[i] = r.Inputs[0]
		}
		return out
	}
	return r.Inputs
}

type ResultKind string

const (
	KindText ResultKind = "text"
	KindList ResultKind = "list"
)

// Result is the resolved value of an aggregation: Text for joining policies,
// Values for list-producing ones.
type Result struct {
	Policy string     `json:"policy"`
	Kind   ResultKind `json:"kind"`
	Text   string     `json:"text,omitempty"`
	Values []string   `json:"values,omitempty"`
}

func (r Result) String() string {
	if r.Kind == KindList {
		return "[" + strings.Join(r.Values, ", ") + "]"
	}
	return r.Text
}

var (
	policies   = make(map[string]Policy)
	policiesMu sync.RWMutex
)

func Register(p Policy) {
	if p == nil {
		panic("policy is nil")
	}
	id := p.ID()
	if id == "" {
		panic("policy id is empty")
	}

	policiesMu.Lock()
	defer policiesMu.Unlock()
	if _, exists := policies[id]; exists {
		panic(fmt.Sprintf("policy %s already registered", id))
	}
	policies[id] = p
}

func List() []Policy {
	policiesMu.RLock()
	defer policiesMu.RUnlock()

	all := make([]Policy, 0, len(policies))
	for _, p := range policies {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ID() < all[j].ID()
	})
	return all
}

func Resolve(id string) (Policy, error) {
	policiesMu.RLock()
	defer policiesMu.RUnlock()

	id = strings.ToLower(strings.TrimSpace(id))
	p, ok := policies[id]
	if !ok {
		return nil, fmt.Errorf("policy not found: %s", id)
	}
	return p, nil
}
