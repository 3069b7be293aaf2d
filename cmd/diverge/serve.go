package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/diverge/internal/httpapi"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		Long: `Start an HTTP server exposing:

  POST /v1/solutions          run the pipeline for {"problem": "..."}
  POST /v1/solutions/stream   same, streaming progress as Server-Sent Events
  GET  /v1/backends           configured backend roles
  GET  /healthz               liveness
  GET  /metrics               Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.pipeline()
			if err != nil {
				return err
			}
			defer p.Close()
			go a.drainProgress(p.Progress())

			if !a.cfg.Log.Development {
				gin.SetMode(gin.ReleaseMode)
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			srv := httpapi.New(p,
				httpapi.WithLogger(a.logger.Named("http")),
				httpapi.WithMetrics(a.metrics.Handler()),
				httpapi.WithRoles(p.Config().Roles()),
				httpapi.WithVersion(version),
			)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	return cmd
}
