package main

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the blog generation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		s := &apiServer{
			runner:   env.Pipeline,
			store:    env.Store,
			metrics:  promhttp.HandlerFor(env.Registry, promhttp.HandlerOpts{}),
			backends: env.Pipeline.Backends(),
		}
		limiter := newClientLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
		handler := buildRouter(s, limiter, cfg.Server.CORSOrigins)

		return startServer(ctx, handler, resolvePort(servePort, cfg.Server.Port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
