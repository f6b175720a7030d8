package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fanin/internal/engine"
	"fanin/internal/flags"
	"fanin/internal/server"
)

func newServeCmd(global *globalOptions) *cobra.Command {
	o := newConfigOptions(global)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured services and aggregation over HTTP",
		Long: `Serve the configured services and aggregation over HTTP until interrupted.

Endpoints:
	GET  /healthz
	GET  /v1/policies
	GET  /v1/services
	GET  /v1/services/{id}/retrieve?input=...
	POST /v1/aggregate   {"policy":"join","services":["A"],"inputs":["x"],"fallback":""}

An http service in another fanin process points at this server:
	fanin run --service hello:http:http://localhost:8080 --input msg

Examples:
	fanin serve --service Hello --service World
	fanin serve --config services.yaml --addr 127.0.0.1:9000 --rate-limit 50 --rate-burst 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load(cmd)
			if err != nil {
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
			return server.New(eng, cfg.Server, log).ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	f := o.flagged
	o.bindCommon(cmd)
	cmd.Flags().StringVar(&f.Server.Addr, flags.FlagAddr, f.Server.Addr, "Listen address (default: :8080)")
	cmd.Flags().Float64Var(&f.Server.RateLimit, flags.FlagRateLimit, 0, "Aggregations per second allowed on POST /v1/aggregate (0 = unlimited)")
	cmd.Flags().IntVar(&f.Server.RateBurst, flags.FlagRateBurst, 0, "Burst size for --rate-limit (default: 1 when a limit is set)")

	return cmd
}
