package main

import (
	"time"

	"github.com/fwojciec/tutor"
	tutorhttp "github.com/fwojciec/tutor/http"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

func newServeCmd(opts *options, e env) *cobra.Command {
	var (
		addr       string
		sessionTTL time.Duration
		rateLimit  float64
		burst      int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tutor over HTTP and websockets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger, err := newLogger(cmd.ErrOrStderr(), opts.logLevel)
			if err != nil {
				return err
			}
			provider, cfg, err := opts.setup(ctx, e)
			if err != nil {
				return err
			}
			srv := tutorhttp.NewServer(
				func() *tutor.Session { return tutor.NewSession(provider, cfg) },
				tutorhttp.WithLogger(logger),
				tutorhttp.WithSessionTTL(sessionTTL),
				tutorhttp.WithRateLimit(rate.Limit(rateLimit), burst),
			)
			logger.Info("starting server", "model", cfg.Model, "opening", cfg.Opening)
			return srv.ListenAndServe(ctx, addr)
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8080", "Listen address")
	f.DurationVar(&sessionTTL, "session-ttl", 30*time.Minute, "Drop sessions idle for this long (0 keeps them)")
	f.Float64Var(&rateLimit, "rate-limit", 1, "Requests per second allowed per client")
	f.IntVar(&burst, "burst", 5, "Request burst allowed per client")
	return cmd
}
