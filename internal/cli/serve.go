package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/model_layer/internal/metrics"
	"github.com/R3E-Network/model_layer/internal/rpc"
	"github.com/R3E-Network/model_layer/internal/web"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides config")
	return cmd
}

func runServe(ctx context.Context, rootOpts *RootOptions, addr string) error {
	cfg, err := rootOpts.load()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.HTTPAddr = addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := rootOpts.logger(cfg)

	d, err := openDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	srv := web.NewServer(web.Options{
		Manager:        d.mm,
		Dispatcher:     rpc.New(d.mm),
		Hasher:         d.hasher,
		Issuer:         d.issuer,
		Sessions:       d.sessions,
		Metrics:        metrics.New("model_layer"),
		Logger:         log,
		WebFolder:      cfg.WebFolder,
		AllowedOrigins: cfg.Origins(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	return srv.Run(ctx, cfg.HTTPAddr)
}
