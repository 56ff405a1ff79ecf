package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/powerdisco/internal/config"
	"github.com/nao1215/powerdisco/internal/database"
	"github.com/nao1215/powerdisco/internal/discovery"
	securelog "github.com/nao1215/powerdisco/internal/log"
	"github.com/nao1215/powerdisco/internal/protocol"
)

// envFileName is the dotenv file loaded from the working directory.
const envFileName = ".env"

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getGlobalString retrieves a string flag from the command or the root.
func getGlobalString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}

// loadConfig builds the configuration shared by every command.
// Values are applied in order: defaults, configuration file, environment
// (including .env), then the global flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadEnv(envFileName); err != nil {
		return nil, err
	}

	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.ConfigFilePath = getGlobalString(cmd, "config")

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if endpoint := getGlobalString(cmd, "endpoint"); endpoint != "" {
		cfg.Endpoint = endpoint
	}

	return cfg, nil
}

// setupLogger creates a structured logger that masks credentials.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	return securelog.NewSecureLogger(w, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// newProber builds the protocol prober configured by cfg.
func newProber(cfg *config.Config, logger *slog.Logger) *protocol.Prober {
	return protocol.NewProber(
		protocol.WithLogger(logger),
		protocol.WithProbeTimeout(cfg.ProbeTimeout),
		protocol.WithHostCheckTimeout(cfg.PingTimeout),
	)
}

// registryDialer opens the sqlite registry for the orchestrator and keeps
// the handle so that commands can read campaign records back.
type registryDialer struct {
	db *database.AssetDB
}

func (d *registryDialer) dial(ctx context.Context, endpoint, agent string) (discovery.AssetCreator, error) {
	db, err := database.Dial(ctx, endpoint, agent)
	if err != nil {
		return nil, fmt.Errorf("failed to open asset registry %s: %w", endpoint, err)
	}
	d.db = db
	return db, nil
}

// openRegistry opens the registry for reading.
func openRegistry(cfg *config.Config) (*database.AssetDB, error) {
	db, err := database.Open(cfg.Endpoint, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open asset registry %s: %w", cfg.Endpoint, err)
	}
	return db, nil
}

// openOutput returns the report destination: path, or stdout when empty.
// The returned function closes the file.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}

	// Create directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list device addresses and credential ids, so they are only
	// readable by the owner.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
