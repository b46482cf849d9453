package main

import (
	"time"

	"github.com/fyrsmithlabs/repolens/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve indexing and search over HTTP until interrupted.

Endpoints:
  GET  /health
  GET  /metrics
  GET  /v1/indexed
  GET  /v1/search?q=&repo=&n=&preview=&global_rank=
  GET  /v1/grep?q=&repo=
  POST /v1/index/:owner/:name

Examples:
  repolens serve
  repolens serve --addr 0.0.0.0:8086`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), needs{github: true, vectors: true})
	if err != nil {
		return err
	}
	defer a.close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv, err := server.New(a.service, a.logger, server.Config{
		Addr:            addr,
		ShutdownTimeout: time.Duration(a.cfg.Server.ShutdownTimeout),
		Metrics:         server.NewHTTPMetricsWithMeter(a.telemetry.Meter(instrumentationName), a.logger.Underlying()),
	})
	if err != nil {
		return err
	}

	a.logger.Info(cmd.Context(), "serving HTTP API", zap.String("addr", addr))
	return srv.Run(cmd.Context())
}
