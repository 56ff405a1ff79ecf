package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/powerdisco/internal/config"
	"github.com/nao1215/powerdisco/internal/discovery"
	"github.com/nao1215/powerdisco/internal/model"
	"github.com/nao1215/powerdisco/internal/report"
)

// shutdownTimeout bounds the wait for in-flight tasks when a command exits.
const shutdownTimeout = 30 * time.Second

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [address...]",
		Short: "Run a discovery campaign",
		Long: `Scan runs one discovery campaign and prints its report.

Every address is checked for availability, then probed for:
- the vendor REST API over HTTPS (port 443)
- the XML protocol of network management cards over HTTP (port 80)
- SNMP over UDP (port 161)

For each reachable protocol the credentials are tried in order with the
matching NUT driver. Devices found on the first working combination are
created in the asset registry together with their sensors.

Examples:
  # Scan two addresses with an SNMPv1 community from the config file
  powerdisco scan --credential snmp-public 10.0.0.5 10.0.0.6

  # Scan a subnet and a span
  powerdisco scan --range 10.0.0.0/24 --range 10.0.1.10-10.0.1.20

  # Scan the subnets of the local interfaces
  powerdisco scan --type local

  # Run the campaign of the configuration file and write a Markdown report
  powerdisco scan -c powerdisco.yaml --markdown -o report.md

Press Ctrl+C to stop the campaign. Hosts already being scanned finish first.`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Discovery request flags
	cmd.Flags().StringP("type", "t", "",
		"Discovery type: ip, multi, full or local (default: derived from arguments)")
	cmd.Flags().StringSliceP("range", "r", nil,
		"Address range to scan, as CIDR or first-last (repeatable)")
	cmd.Flags().StringSliceP("protocol", "P", nil,
		"Restrict probing to these protocols (nut_powercom, nut_xml_pdc, nut_snmp)")
	cmd.Flags().StringSliceP("credential", "C", nil,
		"Credential id from the configuration file, tried in order (repeatable)")
	cmd.Flags().StringSliceP("link", "l", nil,
		"Default power link as source[:type] (repeatable)")
	cmd.Flags().Int("priority", 0, "Priority of created assets")
	cmd.Flags().String("parent", "", "Parent asset of created assets")
	cmd.Flags().Bool("device-centric", false, "Create assets as active")

	// Campaign tuning flags
	cmd.Flags().IntP("max-workers", "w", config.DefaultPoolMaxWorkers,
		"Maximum number of hosts scanned concurrently")
	cmd.Flags().Duration("stuck-timeout", config.DefaultStuckTimeout,
		"Terminate the campaign when it makes no progress for this long")
	cmd.Flags().Duration("watchdog-interval", config.DefaultWatchdogInterval,
		"How often campaign progress is checked")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildScanConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	req, err := buildRequest(cmd, args, cfg.File)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runScan(ctx, cfg, req, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildScanConfig creates a Config from the global configuration and the
// scan flags. Flags only override the file when set explicitly.
func buildScanConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("max-workers") {
		if cfg.PoolMaxWorkers, err = flags.GetInt("max-workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("stuck-timeout") {
		if cfg.StuckTimeout, err = flags.GetDuration("stuck-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("watchdog-interval") {
		if cfg.WatchdogInterval, err = flags.GetDuration("watchdog-interval"); err != nil {
			return nil, err
		}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// buildRequest merges the discovery request of the configuration file with
// the command line. Positional arguments are explicit addresses.
func buildRequest(cmd *cobra.Command, args []string, file *config.File) (model.DiscoveryRequest, error) {
	var req model.DiscoveryRequest
	if file != nil && file.Discovery != nil {
		req = file.Discovery.Clone()
	}

	flags := cmd.Flags()

	ranges, err := flags.GetStringSlice("range")
	if err != nil {
		return req, err
	}
	if len(args) > 0 || len(ranges) > 0 {
		req.IPs = args
		req.Ranges = ranges
		req.Kind = ""
	}

	kind, err := flags.GetString("type")
	if err != nil {
		return req, err
	}
	switch {
	case kind != "":
		req.Kind = model.DiscoveryKind(strings.ToLower(kind))
	case req.Kind != "":
	case len(req.IPs) > 0 && len(req.Ranges) > 0:
		req.Kind = model.KindFull
	case len(req.Ranges) > 0:
		req.Kind = model.KindNamedRanges
	case len(req.IPs) > 0:
		req.Kind = model.KindExplicitIPs
	default:
		return req, errors.New("nothing to scan (give addresses, --range, --type local, or a discovery section in the configuration file)")
	}
	if !req.Kind.Valid() {
		return req, fmt.Errorf("unknown discovery type %q (want ip, multi, full or local)", req.Kind)
	}

	if flags.Changed("protocol") {
		if req.Protocols, err = flags.GetStringSlice("protocol"); err != nil {
			return req, err
		}
	}
	if flags.Changed("credential") {
		if req.Credentials, err = flags.GetStringSlice("credential"); err != nil {
			return req, err
		}
	}
	if flags.Changed("link") {
		raw, err := flags.GetStringSlice("link")
		if err != nil {
			return req, err
		}
		if req.Links, err = parseLinks(raw); err != nil {
			return req, err
		}
	}
	if flags.Changed("priority") {
		if req.Priority, err = flags.GetInt("priority"); err != nil {
			return req, err
		}
	}
	if flags.Changed("parent") {
		if req.Parent, err = flags.GetString("parent"); err != nil {
			return req, err
		}
	}
	if flags.Changed("device-centric") {
		if req.DeviceCentric, err = flags.GetBool("device-centric"); err != nil {
			return req, err
		}
	}

	return req, nil
}

// defaultLinkType is used for --link values without a type.
const defaultLinkType = 1

// parseLinks parses "source[:type]" power links.
func parseLinks(raw []string) ([]model.PowerLink, error) {
	links := make([]model.PowerLink, 0, len(raw))
	for _, r := range raw {
		src, typ, hasType := strings.Cut(r, ":")
		if src == "" {
			return nil, fmt.Errorf("invalid link %q: empty source", r)
		}
		link := model.PowerLink{Source: src, Type: defaultLinkType}
		if hasType {
			n, err := strconv.Atoi(typ)
			if err != nil {
				return nil, fmt.Errorf("invalid link %q: %w", r, err)
			}
			link.Type = n
		}
		links = append(links, link)
	}
	return links, nil
}

// runScan runs one campaign to completion and writes its report.
// Cancelling ctx stops the campaign; the report of the partial campaign is
// still written.
func runScan(ctx context.Context, cfg *config.Config, req model.DiscoveryRequest, stdout, stderr io.Writer, logger *slog.Logger) error {
	registry := &registryDialer{}
	orch, err := discovery.New(context.WithoutCancel(ctx), cfg, registry.dial,
		discovery.WithLogger(logger),
		discovery.WithProber(newProber(cfg, logger)),
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

	if err := orch.Start(ctx, req); err != nil {
		return fmt.Errorf("failed to start discovery: %w", err)
	}
	id := orch.CampaignID()
	fmt.Fprintf(stderr, "Discovery %s started\n", id)

	waitCampaign(ctx, orch, cfg.WatchdogInterval, stderr, logger)

	rec, err := registry.db.GetCampaign(context.WithoutCancel(ctx), id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("campaign %s was not recorded", id)
	}

	return outputReport(cfg, rec, stdout)
}

// waitCampaign blocks until the campaign terminates, printing progress to
// stderr. When ctx is cancelled the campaign is stopped and the wait goes on
// until in-flight hosts are done.
func waitCampaign(ctx context.Context, orch *discovery.Orchestrator, interval time.Duration, stderr io.Writer, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := orch.Wait(ctx); err == nil {
			return
		}
		if err := orch.Stop(); err != nil && !errors.Is(err, discovery.ErrConcurrency) {
			logger.Error("failed to stop discovery", "error", err)
		}
		_ = orch.Wait(context.WithoutCancel(ctx)) //nolint:errcheck // never fails without a deadline
	}()

	ticker := time.NewTicker(max(interval, time.Second))
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-done:
			st := orch.Status()
			fmt.Fprintf(stderr, "Discovery finished: %d device(s) discovered\n", st.Discovered)
			return
		case <-ticker.C:
			st := orch.Status()
			if st.Progress != last {
				last = st.Progress
				fmt.Fprintf(stderr, "Progress: %3d%% (%d discovered)\n", st.Progress, st.Discovered)
			}
		}
	}
}

// outputReport writes the campaign report in the requested format.
func outputReport(cfg *config.Config, rec *model.CampaignRecord, stdout io.Writer) error {
	output, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err = w.Write(rec)
	if cerr := closeOutput(); err == nil {
		err = cerr
	}
	return err
}
