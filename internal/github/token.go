package github

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

type AuthTokenSource string

const (
	AuthTokenSourceExplicit AuthTokenSource = "explicit"
	AuthTokenSourceFaninEnv AuthTokenSource = "env:FANIN_GITHUB_TOKEN"
	AuthTokenSourceEnv      AuthTokenSource = "env:GITHUB_TOKEN"
	AuthTokenSourceGitHubCL AuthTokenSource = "gh"
)

// ResolveAuthToken finds a GitHub token for github-backed services.
//
// Precedence:
//  1. provided (if non-empty)
//  2. FANIN_GITHUB_TOKEN
//  3. GITHUB_TOKEN
//  4. `gh auth token -h github.com`
//
// An empty token with a nil error means unauthenticated access.
func ResolveAuthToken(ctx context.Context, provided string) (string, AuthTokenSource, error) {
	if tok := strings.TrimSpace(provided); tok != "" {
		return tok, AuthTokenSourceExplicit, nil
	}
	for _, src := range []AuthTokenSource{AuthTokenSourceFaninEnv, AuthTokenSourceEnv} {
		name := strings.TrimPrefix(string(src), "env:")
		if tok := strings.TrimSpace(os.Getenv(name)); tok != "" {
			return tok, src, nil
		}
	}

	tok, err := tokenFromGitHubCLI(ctx)
	if err != nil {
		return "", "", err
	}
	if tok != "" {
		return tok, AuthTokenSourceGitHubCL, nil
	}
	return "", "", nil
}

func tokenFromGitHubCLI(ctx context.Context) (string, error) {
	if _, err := exec.LookPath("gh"); err != nil {
		return "", nil
	}

	cmdCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, "gh", "auth", "token", "-h", "github.com")
	cmd.Env = append(os.Environ(), "GH_PAGER=cat")
	out, err := cmd.Output()
	if err != nil {
		if cmdCtx.Err() != nil {
			return "", cmdCtx.Err()
		}
		// Not logged in or otherwise broken: fall back to unauthenticated.
		return "", nil
	}

	tok := strings.TrimSpace(string(out))
	if strings.ContainsAny(tok, " \t\n\r") {
		return "", errors.New("invalid token returned by gh: contains whitespace")
	}
	return tok, nil
}
