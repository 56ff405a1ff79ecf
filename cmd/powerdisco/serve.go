package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nao1215/powerdisco/internal/config"
	"github.com/nao1215/powerdisco/internal/discovery"
	securelog "github.com/nao1215/powerdisco/internal/log"
	"github.com/nao1215/powerdisco/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the discovery control API",
		Long: `Serve runs the discovery orchestrator behind a JSON HTTP API.

Endpoints:
  GET  /api/v1/status         campaign status
  POST /api/v1/scan/start     start a campaign (discovery request body)
  POST /api/v1/scan/stop      stop the running campaign
  GET  /api/v1/scan/results   per-host results of the current campaign
  POST /api/v1/protocols      probe one address: {"address": "10.0.0.5"}
  GET  /api/v1/assets         created assets (?subtype=&parent=&limit=)
  GET  /api/v1/campaigns      campaign history (?limit=)

Logs are written to stderr as JSON.`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "L", config.DefaultListenAddress, "Listen address")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		if cfg.ListenAddress, err = cmd.Flags().GetString("listen"); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := securelog.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runServe(ctx, cfg, logger)
}

// runServe serves the API until ctx is cancelled, then stops the running
// campaign and closes the registry.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry := &registryDialer{}
	prober := newProber(cfg, logger)

	orch, err := discovery.New(context.WithoutCancel(ctx), cfg, registry.dial,
		discovery.WithLogger(logger),
		discovery.WithProber(prober),
	)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := orch.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down discovery", "error", err)
		}
	}()

	srv := server.NewServer(orch, prober,
		server.WithAssets(registry.db),
		server.WithHistory(registry.db),
		server.WithLogger(logger),
	)
	return srv.Run(ctx, cfg.ListenAddress)
}
