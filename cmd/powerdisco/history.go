package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/powerdisco/internal/config"
	"github.com/nao1215/powerdisco/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [campaign-id]",
		Short: "Show recorded discovery campaigns",
		Long: `History lists the campaigns recorded in the asset registry, newest first.
With a campaign id, it prints the full report of that campaign.

Examples:
  # List the last 10 campaigns
  powerdisco history -n 10

  # Show one campaign as Markdown
  powerdisco history --markdown 6f1c2a9e-2b1d-4f5e-9a77-3c0d8f2e1b44`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum number of campaigns to list (0 for all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write output to specified file path (creates directories if needed)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	db, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()

	if len(args) == 1 {
		rec, err := db.GetCampaign(ctx, args[0])
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("campaign not found: %s", args[0])
		}
		return outputReport(cfg, rec, cmd.OutOrStdout())
	}

	records, err := db.ListCampaigns(ctx, limit)
	if err != nil {
		return err
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	_, err = historyWriter(cfg, output).WriteHistory(records)
	if cerr := closeOutput(); err == nil {
		err = cerr
	}
	return err
}

func historyWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output)
	}
}
