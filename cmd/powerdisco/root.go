package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for powerdisco.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "powerdisco",
		Short: "Discover power devices on the network",
		Long: `powerdisco discovers UPS, ePDU and STS devices and their sensors.

Each address is probed for the vendor REST API (HTTPS), the XML protocol of
network management cards (HTTP) and SNMP. Devices behind a reachable protocol
are enumerated with NUT drivers and registered in the asset registry.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .powerdisco in current or home directory)")
	cmd.PersistentFlags().String("endpoint", "",
		"Asset registry database path (default: XDG data directory)")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewProtocolsCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewAssetsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
