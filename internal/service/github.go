package service

import (
	"context"
	"fmt"

	"fanin/internal/aggregate"
	"fanin/internal/config"
	gh "fanin/internal/github"
)

// GitHub resolves an OWNER/REPO input to ID:OWNER/REPO@<default branch>.
type GitHub struct {
	id      string
	client  *gh.Client
	verbose bool
}

func NewGitHub(id string, client *gh.Client, verbose bool) *GitHub {
	return &GitHub{id: id, client: client, verbose: verbose}
}

func newGitHubFromSpec(ctx context.Context, spec config.ServiceSpec, deps *Deps) (aggregate.Service, error) {
	client, err := deps.gitHubClient(ctx, spec.Arg)
	if err != nil {
		return nil, err
	}
	return NewGitHub(spec.ID, client, deps.Verbose), nil
}

func (g *GitHub) ID() string {
	return g.id
}

func (g *GitHub) Retrieve(ctx context.Context, input string) *aggregate.Future {
	owner, name, err := gh.SplitRepo(input)
	if err != nil {
		return aggregate.Failed(err)
	}
	return aggregate.Go(func() (string, error) {
		branch, err := g.client.DefaultBranch(ctx, owner, name)
		if err != nil {
			return "", &apiError{msg: gh.Describe(err, g.verbose), err: err}
		}
		return fmt.Sprintf("%s:%s/%s@%s", g.id, owner, name, branch), nil
	})
}

// apiError shows the scrubbed message and keeps the cause for errors.Is/As.
type apiError struct {
	msg string
	err error
}

func (e *apiError) Error() string { return e.msg }

func (e *apiError) Unwrap() error { return e.err }
