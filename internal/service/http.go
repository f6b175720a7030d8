package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"

	"fanin/internal/aggregate"
	"fanin/internal/config"
	"fanin/internal/logger"
)

const (
	maxResponseBytes = 1 << 20
	defaultMaxTries  = 3
)

// Remote forwards calls to a service hosted by another `fanin serve` process.
// Transport errors, 429s and 5xx answers other than a service failure are
// retried with exponential backoff.
type Remote struct {
	id       string
	remote   string
	base     *url.URL
	client   *http.Client
	log      *logger.Logger
	maxTries uint
	backoff  func() backoff.BackOff
}

type RemoteOption func(*Remote)

func WithMaxTries(n uint) RemoteOption {
	return func(r *Remote) {
		if n > 0 {
			r.maxTries = n
		}
	}
}

func WithBackOff(f func() backoff.BackOff) RemoteOption {
	return func(r *Remote) {
		if f != nil {
			r.backoff = f
		}
	}
}

func WithRemoteLogger(l *logger.Logger) RemoteOption {
	return func(r *Remote) {
		r.log = l
	}
}

func NewRemote(id, remote, baseURL string, client *http.Client, opts ...RemoteOption) (*Remote, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if remote == "" {
		remote = id
	}
	if client == nil {
		client = &http.Client{}
	}
	r := &Remote{
		id:       id,
		remote:   remote,
		base:     base,
		client:   client,
		log:      logger.Nop(),
		maxTries: defaultMaxTries,
		backoff:  defaultBackOff,
	}
	for _, apply := range opts {
		if apply != nil {
			apply(r)
		}
	}
	return r, nil
}

func newRemoteFromSpec(_ context.Context, spec config.ServiceSpec, deps *Deps) (aggregate.Service, error) {
	return NewRemote(spec.ID, spec.Remote, spec.Arg, deps.HTTP, WithRemoteLogger(deps.Log))
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	return b
}

func (r *Remote) ID() string {
	return r.id
}

func (r *Remote) Retrieve(ctx context.Context, input string) *aggregate.Future {
	return aggregate.Go(func() (string, error) {
		return r.retrieve(ctx, input)
	})
}

func (r *Remote) endpoint(input string) string {
	u := r.base.JoinPath("v1", "services", r.remote, "retrieve")
	u.RawQuery = url.Values{"input": {input}}.Encode()
	return u.String()
}

func (r *Remote) retrieve(ctx context.Context, input string) (string, error) {
	endpoint := r.endpoint(input)

	op := func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return "", err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return "", err
		}

		if resp.StatusCode == http.StatusOK {
			var out RetrieveResponse
			if err := json.Unmarshal(body, &out); err != nil {
				return "", backoff.Permanent(fmt.Errorf("decode response: %w", err))
			}
			return out.Value, nil
		}

		rerr := decodeRemoteError(resp.StatusCode, body)
		if rerr.Retryable() {
			return "", rerr
		}
		return "", backoff.Permanent(rerr)
	}

	notify := func(err error, next time.Duration) {
		r.log.Debug("retrying remote service", "service", r.id, "remote", r.remote, "in", next, "error", err)
	}

	v, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(r.backoff()),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithNotify(notify),
	)
	if err != nil {
		var rerr *RemoteError
		if errors.As(err, &rerr) {
			return "", err
		}
		return "", fmt.Errorf("call %s: %w", r.base.Redacted(), err)
	}
	return v, nil
}

func decodeRemoteError(status int, body []byte) *RemoteError {
	rerr := &RemoteError{Status: status}
	var env ErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		rerr.Code = env.Error.Code
		rerr.Message = env.Error.Message
	}
	return rerr
}
