package service

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"fanin/internal/aggregate"
	"fanin/internal/config"
	gh "fanin/internal/github"
	"fanin/internal/logger"
)

// Factory builds one Service from its spec.
type Factory func(ctx context.Context, spec config.ServiceSpec, deps *Deps) (aggregate.Service, error)

var (
	factories = make(map[string]Factory)
	mu        sync.RWMutex
)

func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("service kind %s already registered", kind))
	}
	factories[kind] = f
}

func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func init() {
	Register(config.KindEcho, newEchoFromSpec)
	Register(config.KindFail, newFailFromSpec)
	Register(config.KindHTTP, newRemoteFromSpec)
	Register(config.KindGitHub, newGitHubFromSpec)
}

// Deps carries what factories share across services of one Set.
type Deps struct {
	// HTTP is used by http services. Defaults to a client with no timeout;
	// calls are bounded by the aggregation context.
	HTTP *http.Client

	// GitHubToken authenticates github services. Empty means unauthenticated.
	GitHubToken string

	Verbose bool
	Log     *logger.Logger

	ghMu      sync.Mutex
	ghClients map[string]*gh.Client // API base URL -> client
}

// gitHubClient returns the shared client for baseURL, creating it on first use
// so every github service against the same API shares one budget and cache.
func (d *Deps) gitHubClient(ctx context.Context, baseURL string) (*gh.Client, error) {
	d.ghMu.Lock()
	defer d.ghMu.Unlock()
	if c, ok := d.ghClients[baseURL]; ok {
		return c, nil
	}

	opts := []gh.Option{gh.WithLogger(d.Log)}
	if baseURL != "" {
		opts = append(opts, gh.WithBaseURL(baseURL))
	}
	c, err := gh.NewClient(ctx, d.GitHubToken, opts...)
	if err != nil {
		return nil, err
	}
	if d.ghClients == nil {
		d.ghClients = make(map[string]*gh.Client)
	}
	d.ghClients[baseURL] = c
	return c, nil
}

// Set is an ordered, ID-addressable collection of built services.
type Set struct {
	order []aggregate.Service
	byID  map[string]aggregate.Service
}

// Build constructs one Service per spec, in order. Specs are expected to have
// passed config validation.
func Build(ctx context.Context, specs []config.ServiceSpec, deps *Deps) (*Set, error) {
	if deps == nil {
		deps = &Deps{}
	}
	if deps.HTTP == nil {
		deps.HTTP = &http.Client{}
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}

	set := &Set{byID: make(map[string]aggregate.Service, len(specs))}
	for _, spec := range specs {
		mu.RLock()
		factory, ok := factories[spec.Kind]
		mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("service %s: unsupported kind %q", spec.ID, spec.Kind)
		}
		if _, dup := set.byID[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate service id %q", spec.ID)
		}

		svc, err := factory(ctx, spec, deps)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", spec.ID, err)
		}
		set.order = append(set.order, svc)
		set.byID[spec.ID] = svc
	}
	return set, nil
}

// All returns the services in configuration order.
func (s *Set) All() []aggregate.Service {
	return append([]aggregate.Service(nil), s.order...)
}

func (s *Set) IDs() []string {
	ids := make([]string, len(s.order))
	for i, svc := range s.order {
		ids[i] = svc.ID()
	}
	return ids
}

func (s *Set) Get(id string) (aggregate.Service, bool) {
	svc, ok := s.byID[id]
	return svc, ok
}

func (s *Set) Len() int {
	return len(s.order)
}

// Select resolves ids in order. An ID may appear more than once; an empty
// list selects every service.
func (s *Set) Select(ids []string) ([]aggregate.Service, error) {
	if len(ids) == 0 {
		return s.All(), nil
	}
	out := make([]aggregate.Service, 0, len(ids))
	for _, id := range ids {
		svc, ok := s.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, id)
		}
		out = append(out, svc)
	}
	return out, nil
}
