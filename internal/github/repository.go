package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v81/github"
)

// SplitRepo parses an OWNER/REPO reference.
func SplitRepo(full string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(full), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q: expected OWNER/REPO", full)
	}
	return owner, name, nil
}

// DefaultBranch returns the default branch of owner/name. Concurrent lookups of
// the same repository share one API request and successful answers are cached
// for the life of the client.
func (c *Client) DefaultBranch(ctx context.Context, owner, name string) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("DefaultBranch: nil context")
	}
	if c == nil || c.Client == nil {
		return "", fmt.Errorf("DefaultBranch: nil GitHub client (use NewClient)")
	}
	if owner == "" || name == "" {
		return "", fmt.Errorf("DefaultBranch: repo owner/name is required")
	}

	key := strings.ToLower(owner + "/" + name)
	if v, ok := c.branches.Load(key); ok {
		return v.(string), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		repo, _, err := c.Client.Repositories.Get(ctx, owner, name)
		if err != nil {
			return nil, err
		}
		return repo.GetDefaultBranch(), nil
	})
	if err != nil {
		return "", err
	}

	branch := v.(string)
	c.branches.Store(key, branch)
	return branch, nil
}

// Describe renders a GitHub API error without leaking request URLs unless
// verbose is set.
func Describe(err error, verbose bool) string {
	if err == nil {
		return "unknown error"
	}
	if verbose {
		return err.Error()
	}

	var er *github.ErrorResponse
	if errors.As(err, &er) {
		msg := strings.TrimSpace(er.Message)
		if msg == "" {
			msg = "GitHub API request failed"
		}
		if er.Response != nil {
			code := er.Response.StatusCode
			return fmt.Sprintf("GitHub API request failed (%d %s): %s", code, http.StatusText(code), msg)
		}
		return fmt.Sprintf("GitHub API request failed: %s", msg)
	}

	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return "GitHub API rate limit exceeded"
	}

	if scrubbed := scrubRequest(err.Error()); scrubbed != "" {
		return scrubbed
	}
	return "GitHub API request failed"
}

// scrubRequest drops the "GET https://..." prefix go-github puts in front of
// transport errors.
func scrubRequest(s string) string {
	s = strings.TrimSpace(s)
	for _, method := range []string{"GET ", "POST ", "PUT ", "PATCH ", "DELETE "} {
		if !strings.HasPrefix(s, method) {
			continue
		}
		if _, rest, ok := strings.Cut(s, ": "); ok {
			return strings.TrimSpace(rest)
		}
		return ""
	}
	return s
}
