package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fanin/internal/engine"
	"fanin/internal/flags"
)

func newRunCmd(global *globalOptions) *cobra.Command {
	o := newConfigOptions(global)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one aggregation and print the result",
		Long: `Run one aggregation over the configured services and print the result.

Services are given as id[:kind[:arg]] with --service (repeatable) or under
"services:" in a --config YAML file. Flags that are set override the file.

Inputs:
	join and completion-order take exactly one --input, shared by every service.
	fail-fast, partial and fail-soft take one --input per service, or a single
	--input that is sent to every service.

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write a JSON array or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --no-console: suppress the console sink (use with --emit/--out for machine output)

	NDJSON mode emits one JSON object per line with a "type" field
	(run.started, aggregate.resolved or aggregate.rejected, run.finished).

Environment:
	github services authenticate with FANIN_GITHUB_TOKEN, then GITHUB_TOKEN,
	then "gh auth token". Without a token they run unauthenticated.

Exit codes:
	0 = aggregation resolved
	1 = aggregation rejected
	3 = fatal error (aggregation did not run)

Examples:
	fanin run --service Hello --service World --input msg
	fanin run --policy partial --service A --service B:fail --input x --input y
	fanin run --config run.yaml --no-console --emit ndjson`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().NFlag() == 0 {
				return cmd.Help()
			}

			cfg, err := o.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateRun(); err != nil {
				return err
			}

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, err := engine.FromConfig(ctx, cfg, log)
			if err != nil {
				return err
			}
			engine.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())(eng)

			if code := eng.Run(ctx, cfg); code != engine.ExitResolved {
				return &exitCodeError{code: code}
			}
			return nil
		},
	}

	f := o.flagged
	o.bindCommon(cmd)

	// Run
	cmd.Flags().StringVar(&f.Run.Policy, flags.FlagPolicy, f.Run.Policy, "Aggregation policy: join|completion-order|fail-fast|partial|fail-soft (default: join)")
	cmd.Flags().StringArrayVar(&f.Run.Inputs, flags.FlagInput, nil, "Request input (repeatable; one per service for per-service policies)")
	cmd.Flags().StringVar(&f.Run.Fallback, flags.FlagFallback, "", "Value substituted for failed services under fail-soft")

	// Output
	cmd.Flags().StringVar(&f.Output.ConsoleFormat, flags.FlagConsoleFormat, f.Output.ConsoleFormat, "Console output format: text|json|ndjson (default: text)")
	cmd.Flags().StringVar(&f.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	cmd.Flags().StringVar(&f.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	cmd.Flags().StringSliceVar(&f.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	cmd.Flags().BoolVar(&f.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out)")

	return cmd
}
