package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"fanin/internal/aggregate"
	"fanin/internal/config"
	gh "fanin/internal/github"
	"fanin/internal/logger"
	"fanin/internal/output"
	"fanin/internal/service"
)

// Exit code contract:
// 0 = aggregation resolved
// 1 = aggregation rejected
// 3 = fatal error (aggregation did not run)
const (
	ExitResolved = 0
	ExitRejected = 1
	ExitFatal    = 3
)

// ErrInvalidRequest marks requests that never reached the aggregator: unknown
// policy or unknown service.
var ErrInvalidRequest = errors.New("invalid request")

func exitCodeForRun(fatal, rejected bool) int {
	if fatal {
		return ExitFatal
	}
	if rejected {
		return ExitRejected
	}
	return ExitResolved
}

// Request names a policy and the services it fans out to. An empty Services
// list means every configured service, in configuration order.
type Request struct {
	Policy   string   `json:"policy"`
	Services []string `json:"services,omitempty"`
	Inputs   []string `json:"inputs"`
	Fallback string   `json:"fallback,omitempty"`
}

type Engine struct {
	Services  *service.Set
	Processor *aggregate.Processor
	Log       *logger.Logger

	// Timeout bounds one Execute. Zero means only the caller's context applies.
	Timeout time.Duration

	stdout io.Writer
	stderr io.Writer
	runID  func() string
}

type Option func(*Engine)

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		e.Log = l
	}
}

func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.Timeout = d
	}
}

// WithOutput redirects the console/emit sinks and diagnostics.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(e *Engine) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

func NewEngine(services *service.Set, opts ...Option) *Engine {
	e := &Engine{
		Services: services,
		Log:      logger.Nop(),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		runID:    uuid.NewString,
	}
	for _, apply := range opts {
		if apply != nil {
			apply(e)
		}
	}
	if e.Services == nil {
		e.Services = &service.Set{}
	}
	e.Processor = aggregate.NewProcessor(aggregate.WithLogger(e.Log))
	return e
}

// FromConfig builds the configured services and an Engine over them. A GitHub
// token is only resolved when a github service is configured.
func FromConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Engine, error) {
	deps := &service.Deps{Verbose: cfg.Runtime.Verbose, Log: log}
	for _, spec := range cfg.Services {
		if spec.Kind != config.KindGitHub {
			continue
		}
		tok, src, err := gh.ResolveAuthToken(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("resolve GitHub token: %w", err)
		}
		if tok == "" {
			log.Warn("no GitHub token found; github services run unauthenticated")
		} else {
			log.Debug("using GitHub token", "source", string(src))
		}
		deps.GitHubToken = tok
		break
	}

	set, err := service.Build(ctx, cfg.Services, deps)
	if err != nil {
		return nil, err
	}
	return NewEngine(set, WithLogger(log), WithTimeout(cfg.Runtime.Timeout)), nil
}

// Execute runs one aggregation. A rejected aggregation is reported in the
// Record; the error is reserved for requests that could not run at all.
func (e *Engine) Execute(ctx context.Context, req Request) (output.Record, error) {
	if ctx == nil {
		return output.Record{}, fmt.Errorf("execute: nil context")
	}
	policy, err := aggregate.Resolve(req.Policy)
	if err != nil {
		return output.Record{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	services, err := e.Services.Select(req.Services)
	if err != nil {
		return output.Record{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	ids := make([]string, len(services))
	for i, s := range services {
		ids[i] = s.ID()
	}

	start := time.Now()
	res, runErr := policy.Run(ctx, e.Processor, aggregate.Request{
		Services: services,
		Inputs:   req.Inputs,
		Fallback: req.Fallback,
	})
	rec := output.NewRecord(policy.ID(), ids, req.Inputs, res, runErr, time.Since(start))
	rec.RunID = e.runID()

	if runErr != nil {
		e.Log.Info("aggregation rejected", "run_id", rec.RunID, "policy", rec.Policy, "services", len(ids), "error", runErr)
	} else {
		e.Log.Info("aggregation resolved", "run_id", rec.RunID, "policy", rec.Policy, "services", len(ids), "duration_ms", rec.DurationMS)
	}
	return rec, nil
}

func setupOutputManager(cfg *config.Config, stdout io.Writer) (*output.Manager, error) {
	outMgr, err := output.NewManager()
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*output.Manager, error) {
		_ = outMgr.Close()
		return nil, err
	}

	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(stdout, cfg.Output.ConsoleFormat)); err != nil {
			return fail(err)
		}
	}

	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(stdout, emit)
		if err != nil {
			return fail(err)
		}
		if err := outMgr.AddSink(es); err != nil {
			return fail(err)
		}
	}

	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			return fail(err)
		}
		if err := outMgr.AddSink(fs); err != nil {
			return fail(err)
		}
	}

	return outMgr, nil
}

// Run executes the one-shot aggregation described by cfg.Run and writes it to
// the configured sinks. It returns the process exit code.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	outMgr, err := setupOutputManager(cfg, e.stdout)
	if err != nil {
		fmt.Fprintf(e.stderr, "Error creating output sinks: %v\n", err)
		return exitCodeForRun(true, false)
	}
	defer func() {
		if err := outMgr.Close(); err != nil {
			fmt.Fprintf(e.stderr, "Error closing output sinks: %v\n", err)
		}
	}()

	runID := e.runID()
	_ = outMgr.Write(output.Event{Type: "run.started", RunID: runID, ServiceCount: e.Services.Len()})

	rec, err := e.Execute(ctx, Request{
		Policy:   cfg.Run.Policy,
		Inputs:   cfg.Run.Inputs,
		Fallback: cfg.Run.Fallback,
	})
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		code := exitCodeForRun(true, false)
		_ = outMgr.Write(output.Event{Type: "run.finished", RunID: runID, ExitCode: code})
		return code
	}

	rec.RunID = runID
	if err := outMgr.Write(rec); err != nil {
		fmt.Fprintf(e.stderr, "Error writing output: %v\n", err)
	}

	code := exitCodeForRun(false, rec.Status == output.StatusRejected)
	_ = outMgr.Write(output.Event{Type: "run.finished", RunID: runID, ExitCode: code})
	return code
}
