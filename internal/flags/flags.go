package flags

// Package flags defines canonical CLI flag names shared across the CLI and the
// run-file overlay logic, so cobra wiring and code that asks "was this flag
// set?" cannot drift apart.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Run.Policy, flags.FlagPolicy, "join", "...")
//	cmd.Flags().Changed(flags.FlagPolicy)
const (
	// Run
	FlagConfig   = "config"
	FlagPolicy   = "policy"
	FlagInput    = "input"
	FlagFallback = "fallback"
	FlagService  = "service"

	// Output
	FlagConsoleFormat = "console-format"
	FlagOut           = "out"
	FlagOutFormat     = "out-format"
	FlagEmit          = "emit"
	FlagNoConsole     = "no-console"

	// Runtime
	FlagTimeout = "timeout"
	FlagVerbose = "verbose"
	FlagLogMode = "log-mode"

	// Server
	FlagAddr      = "addr"
	FlagRateLimit = "rate-limit"
	FlagRateBurst = "rate-burst"
)
