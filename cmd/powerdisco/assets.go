package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/powerdisco/internal/database"
	"github.com/nao1215/powerdisco/internal/model"
)

// NewAssetsCmd creates the assets command.
func NewAssetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "List assets created by discovery",
		Long: `Assets lists the devices and sensors stored in the asset registry.

Examples:
  powerdisco assets
  powerdisco assets --subtype ups
  powerdisco assets --parent ups-1 --json`,
		Args: cobra.NoArgs,
		RunE: runAssetsCmd,
	}

	cmd.Flags().StringP("subtype", "s", "", "Only list assets of this subtype")
	cmd.Flags().StringP("parent", "p", "", "Only list children of this asset")
	cmd.Flags().IntP("limit", "n", 0, "Maximum number of assets (0 for all)")
	cmd.Flags().BoolP("json", "j", false, "Output JSON")

	return cmd
}

func runAssetsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	flags := cmd.Flags()
	var filter database.AssetFilter
	if filter.Subtype, err = flags.GetString("subtype"); err != nil {
		return err
	}
	if filter.Parent, err = flags.GetString("parent"); err != nil {
		return err
	}
	if filter.Limit, err = flags.GetInt("limit"); err != nil {
		return err
	}
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return err
	}

	db, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	assets, err := db.ListAssets(cmd.Context(), filter)
	if err != nil {
		return err
	}

	if asJSON {
		if assets == nil {
			assets = []model.Asset{}
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(assets)
	}
	return writeAssets(cmd.OutOrStdout(), assets)
}

// writeAssets prints one line per asset with its most useful attributes.
func writeAssets(w io.Writer, assets []model.Asset) error {
	var sb strings.Builder

	if len(assets) == 0 {
		sb.WriteString("No assets\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}

	sb.WriteString(fmt.Sprintf("%-14s %-8s %-10s %-14s %-16s %s\n",
		"NAME", "SUBTYPE", "STATUS", "PARENT", "ADDRESS", "MODEL"))
	for _, a := range assets {
		sb.WriteString(fmt.Sprintf("%-14s %-8s %-10s %-14s %-16s %s\n",
			a.Name,
			a.Subtype,
			a.Status,
			orDash(a.Parent),
			orDash(a.Ext["ip.1"].Value),
			orDash(strings.TrimSpace(a.Ext["manufacturer"].Value+" "+a.Ext["model"].Value)),
		))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
