package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fanin/internal/engine"
	"fanin/internal/flags"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	verbose bool
	logMode string
}

// exitCodeError carries a non-zero exit code out of a command that already
// reported its outcome.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "fanin",
		Short: "Fan a request out to several services and aggregate the replies",
		Long: `fanin sends one request to several backend services concurrently and
combines their replies under an explicit failure-handling policy.

Policies:
	join              all replies in service order; the first failure rejects
	completion-order  all replies in the order they complete
	fail-fast         reject as soon as any service fails
	partial           keep successful replies, drop failures
	fail-soft         replace failed replies with a fallback value

Examples:
	# Join two echo services on a shared input
	fanin run --service Hello --service World --input msg

	# Per-service inputs, failures replaced by a fallback
	fanin run --policy fail-soft --service A --service B:fail --input x --input y --fallback n/a

	# Host services for http services in other processes
	fanin serve --service Hello --service World --addr :8080

	# List policies
	fanin policies list

Output:
	By default, commands write human-readable output to stdout. Logs go to stderr.
	"fanin run" also supports structured output (see "fanin run --help").`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVar(&opts.verbose, flags.FlagVerbose, false, "Enable verbose logging (debug level, every GitHub API call)")
	cmd.PersistentFlags().StringVar(&opts.logMode, flags.FlagLogMode, "dev", "Log encoding: dev|prod (default: dev)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newPoliciesCmd())
	cmd.AddCommand(newVersionCmd())

	cmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	cmd.SetVersionTemplate("{{.Version}}\n")
	return cmd
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

// Execute runs the CLI and exits with the command's exit code. Errors that
// stop a command before it produced a result exit with engine.ExitFatal.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		var ec *exitCodeError
		if errors.As(err, &ec) {
			os.Exit(ec.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(engine.ExitFatal)
	}
}
