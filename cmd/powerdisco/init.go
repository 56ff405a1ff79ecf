package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/powerdisco/internal/config"
)

//go:embed templates/powerdisco.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new powerdisco configuration file",
		Long: `Initialize creates a new .powerdisco configuration file in the current directory.

The generated file includes:
- Worker pool, watchdog and NUT driver settings with their defaults
- Example SNMPv1, SNMPv3 and REST credentials
- A commented discovery campaign used by "powerdisco scan" without arguments

Examples:
  # Create .powerdisco in current directory
  powerdisco init

  # Create config file at a specific path
  powerdisco init -o myconfig.yaml

  # Force overwrite existing file
  powerdisco init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/powerdisco.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Credentials are stored in this file, so it is only readable by the owner.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - SNMP communities, SNMPv3 users and REST credentials")
	fmt.Fprintln(out, "  - Worker pool size and stuck campaign timeout")
	fmt.Fprintln(out, "  - The default discovery campaign")

	return nil
}
