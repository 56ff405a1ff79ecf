package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/powerdisco/internal/model"
)

// NewProtocolsCmd creates the protocols command.
func NewProtocolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "protocols <address>",
		Short: "Probe the management protocols of one host",
		Long: `Protocols checks that a host answers and probes each management protocol
in priority order, without enumerating devices or creating assets.

Examples:
  powerdisco protocols 10.0.0.5
  powerdisco protocols --protocol nut_snmp --json 10.0.0.5`,
		Args: cobra.ExactArgs(1),
		RunE: runProtocolsCmd,
	}

	cmd.Flags().StringSliceP("protocol", "P", nil,
		"Restrict probing to these protocols")
	cmd.Flags().BoolP("json", "j", false, "Output JSON")

	return cmd
}

func runProtocolsCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	filter, err := cmd.Flags().GetStringSlice("protocol")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	candidates, err := newProber(cfg, logger).Probe(ctx, args[0], filter)
	if err != nil {
		return err
	}

	if asJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(candidates)
	}
	return writeCandidates(cmd.OutOrStdout(), args[0], candidates)
}

// writeCandidates prints one line per protocol.
func writeCandidates(w io.Writer, address string, candidates []model.ProtocolCandidate) error {
	if _, err := fmt.Fprintf(w, "Protocols of %s:\n", address); err != nil {
		return err
	}
	for _, c := range candidates {
		mark := "-"
		if c.Reachable {
			mark = "+"
		}
		if _, err := fmt.Fprintf(w, "  [%s] %-14s port %-5d available: %s\n", mark, c.Protocol, c.Port, c.Available); err != nil {
			return err
		}
	}
	return nil
}
