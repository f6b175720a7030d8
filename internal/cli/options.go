package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fanin/internal/config"
	"fanin/internal/flags"
	"fanin/internal/logger"
)

// configOptions collects the flags that describe a Config. Flag values live
// in their own Config so a --config file can be loaded first and only the
// flags the user actually set are laid over it.
type configOptions struct {
	path     string
	services []string
	flagged  *config.Config
	global   *globalOptions
}

func newConfigOptions(global *globalOptions) *configOptions {
	return &configOptions{flagged: config.New(), global: global}
}

func (o *configOptions) bindCommon(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.path, flags.FlagConfig, "", "Load settings from a YAML file; flags that are set override it")
	cmd.Flags().StringArrayVar(&o.services, flags.FlagService, nil, "Service as id[:kind[:arg]] (repeatable). Kinds: echo (arg: max delay), fail (arg: message), http (arg: base URL), github (arg: API base URL)")
	cmd.Flags().DurationVar(&o.flagged.Runtime.Timeout, flags.FlagTimeout, o.flagged.Runtime.Timeout, "Per-aggregation timeout (default: 30s)")
}

// load builds the effective Config for cmd: defaults, then the --config file,
// then every flag that was explicitly set.
func (o *configOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.New()
	if o.path != "" {
		loaded, err := config.LoadFile(o.path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := o.overlay(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Services) == 0 {
		return nil, fmt.Errorf("no services configured: pass --%s or set services in --%s", flags.FlagService, flags.FlagConfig)
	}
	return cfg, nil
}

func (o *configOptions) overlay(cmd *cobra.Command, dst *config.Config) error {
	src := o.flagged
	apply := map[string]func(){
		flags.FlagPolicy:        func() { dst.Run.Policy = src.Run.Policy },
		flags.FlagInput:         func() { dst.Run.Inputs = src.Run.Inputs },
		flags.FlagFallback:      func() { dst.Run.Fallback = src.Run.Fallback },
		flags.FlagConsoleFormat: func() { dst.Output.ConsoleFormat = src.Output.ConsoleFormat },
		flags.FlagOut:           func() { dst.Output.Out = src.Output.Out },
		flags.FlagOutFormat:     func() { dst.Output.OutFormat = src.Output.OutFormat },
		flags.FlagEmit:          func() { dst.Output.Emit = src.Output.Emit },
		flags.FlagNoConsole:     func() { dst.Output.NoConsole = src.Output.NoConsole },
		flags.FlagTimeout:       func() { dst.Runtime.Timeout = src.Runtime.Timeout },
		flags.FlagAddr:          func() { dst.Server.Addr = src.Server.Addr },
		flags.FlagRateLimit:     func() { dst.Server.RateLimit = src.Server.RateLimit },
		flags.FlagRateBurst:     func() { dst.Server.RateBurst = src.Server.RateBurst },
	}
	for name, fn := range apply {
		if cmd.Flags().Changed(name) {
			fn()
		}
	}

	if o.global != nil {
		if cmd.Flags().Changed(flags.FlagVerbose) {
			dst.Runtime.Verbose = o.global.verbose
		}
		if cmd.Flags().Changed(flags.FlagLogMode) {
			dst.Runtime.LogMode = o.global.logMode
		}
	}

	if cmd.Flags().Changed(flags.FlagService) {
		specs, err := config.ParseServiceSpecs(o.services)
		if err != nil {
			return err
		}
		dst.Services = specs
	}
	return nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.Runtime.LogMode, cfg.Runtime.Verbose)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}
