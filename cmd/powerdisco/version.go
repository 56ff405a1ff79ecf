package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/nao1215/powerdisco/internal/model"
	"github.com/nao1215/powerdisco/internal/nut"
)

// Version information set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

// buildSetting returns the VCS setting key recorded by the Go toolchain.
func buildSetting(key string) (string, bool) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, setting := range buildInfo.Settings {
		if setting.Key == key {
			return setting.Value, true
		}
	}
	return "", false
}

// getVersion returns version string.
// Priority: ldflags > debug.ReadBuildInfo > "(devel)"
func getVersion() string {
	if version != "" {
		return version
	}
	if buildInfo, ok := debug.ReadBuildInfo(); ok && buildInfo.Main.Version != "" {
		return buildInfo.Main.Version
	}
	return "(devel)"
}

// getCommit returns the short commit hash.
func getCommit() string {
	if commit != "" {
		return commit
	}
	if rev, ok := buildSetting("vcs.revision"); ok {
		return rev[:min(len(rev), 7)]
	}
	return "unknown"
}

func getDate() string {
	if date != "" {
		return date
	}
	if t, ok := buildSetting("vcs.time"); ok {
		return t
	}
	return "unknown"
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit hash, and build date of powerdisco.

With --drivers, also report which NUT drivers are installed in the
configured NUT directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "powerdisco version %s\n", getVersion())
			fmt.Fprintf(out, "  commit: %s\n", getCommit())
			fmt.Fprintf(out, "  built:  %s\n", getDate())
			fmt.Fprintf(out, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)

			drivers, err := cmd.Flags().GetBool("drivers")
			if err != nil || !drivers {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return writeDrivers(out, nut.NewRunner(nut.WithDriverDir(cfg.NUTPath)))
		},
	}

	cmd.Flags().Bool("drivers", false, "Report the installed NUT drivers")

	return cmd
}

// writeDrivers prints the driver of each protocol and where it was found.
func writeDrivers(w io.Writer, runner *nut.Runner) error {
	for _, protocol := range []string{model.ProtocolPowercom, model.ProtocolXMLPDC, model.ProtocolSNMP} {
		name, err := nut.Driver(protocol)
		if err != nil {
			return err
		}
		where := "not installed"
		if path, err := runner.FindExecutable(name); err == nil {
			where = path
		}
		if _, err := fmt.Fprintf(w, "  %-14s %-22s %s\n", protocol, name, where); err != nil {
			return err
		}
	}
	return nil
}
