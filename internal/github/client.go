package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v81/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"fanin/internal/logger"
)

type Client struct {
	Client *github.Client
	HTTP   *http.Client
	Budget *RequestBudget

	group    singleflight.Group
	branches sync.Map // lower(owner/name) -> default branch
}

type options struct {
	log     *logger.Logger
	budget  *RequestBudget
	baseURL string
}

type Option func(*options)

// WithLogger logs one debug line per request and per response.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

func WithBudget(b *RequestBudget) Option {
	return func(o *options) {
		o.budget = b
	}
}

// WithBaseURL points the client at a GitHub Enterprise API root or a test server.
func WithBaseURL(raw string) Option {
	return func(o *options) {
		o.baseURL = raw
	}
}

type loggingRoundTripper struct {
	base http.RoundTripper
	log  *logger.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.log.Debug("github api request", "method", req.Method, "url", req.URL.String())
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		t.log.Debug("github api error", "elapsed", elapsed, "error", err)
		return resp, err
	}
	t.log.Debug("github api response", "status", resp.StatusCode, "elapsed", elapsed)
	return resp, err
}

// budgetRoundTripper takes one unit of the request budget before each call and
// refreshes the budget from the rate limit headers of each response.
type budgetRoundTripper struct {
	base   http.RoundTripper
	budget *RequestBudget
}

func (t *budgetRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.budget.Acquire(req.Context(), 1); err != nil {
		return nil, err
	}
	resp, err := t.base.RoundTrip(req)
	if resp != nil {
		t.budget.UpdateFromResponse(resp)
	}
	return resp, err
}

func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("github client: ctx is nil")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.budget == nil {
		o.budget = NewRequestBudget()
	}

	transport := http.DefaultTransport
	if o.log != nil {
		transport = &loggingRoundTripper{base: transport, log: o.log}
	}
	transport = &budgetRoundTripper{base: transport, budget: o.budget}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	tc := &http.Client{Transport: transport}

	gc := github.NewClient(tc)
	if o.baseURL != "" {
		raw := o.baseURL
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("github client: invalid base url %q: %w", o.baseURL, err)
		}
		gc.BaseURL = u
		gc.UploadURL = u
	}

	return &Client{
		Client: gc,
		HTTP:   tc,
		Budget: o.budget,
	}, nil
}
