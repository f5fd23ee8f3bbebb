package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"compliance/internal/server"
	"compliance/internal/telemetry"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve the ingestion and compliance endpoints:

  POST /api/v1/admin/embed-rules            multipart "file"
  POST /api/v1/compliance/check-compliance  multipart "query", "files"
  GET  /health`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry, Version, log)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	comps, err := buildComponents(ctx, cfg, log, buildOptions{reasoner: true, ingest: true})
	if err != nil {
		return err
	}
	defer comps.Close()

	srv := server.New(cfg.Server, cfg.Ingest.TempDir, comps.ingest, comps.check, log)
	return srv.Run(ctx)
}
