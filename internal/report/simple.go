package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/powerdisco/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing to list are shown.
	showEmpty bool

	// verbose adds probe candidates and per-host errors.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the campaign report in human-readable format.
func (w *SimpleWriter) Write(record *model.CampaignRecord) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, record)
	w.writeSummary(&sb, record)
	w.writeDevices(&sb, record)
	w.writeErrors(&sb, record)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteHistory outputs one line per campaign.
func (w *SimpleWriter) WriteHistory(records []model.CampaignRecord) (int, error) {
	var sb strings.Builder

	if len(records) == 0 {
		sb.WriteString("No campaigns recorded\n")
		return w.output.Write([]byte(sb.String()))
	}

	sb.WriteString(fmt.Sprintf("%-36s  %-6s  %-23s  %9s  %10s  %s\n",
		"ID", "KIND", "STARTED", "ADDRESSES", "DISCOVERED", "OUTCOME"))
	for i := range records {
		rec := &records[i]
		sb.WriteString(fmt.Sprintf("%-36s  %-6s  %-23s  %9d  %10d  %s\n",
			rec.ID,
			rec.Request.Kind,
			rec.StartedAt.Local().Format(timeLayout),
			rec.Addresses,
			rec.Status.Discovered,
			outcome(rec),
		))
	}

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, record *model.CampaignRecord) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                    POWERDISCO CAMPAIGN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Campaign:   %s\n", record.ID))
	sb.WriteString(fmt.Sprintf("Kind:       %s\n", record.Request.Kind))
	sb.WriteString(fmt.Sprintf("Started:    %s\n", record.StartedAt.Local().Format(timeLayout)))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", record.Duration().Round(durationPrecision)))
	sb.WriteString(fmt.Sprintf("Addresses:  %d\n", record.Addresses))
	sb.WriteString(fmt.Sprintf("Status:     %s\n", outcome(record)))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, record *model.CampaignRecord) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("DISCOVERY SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	st := record.Status
	sb.WriteString(fmt.Sprintf("  UPS:      %d\n", st.UPS))
	sb.WriteString(fmt.Sprintf("  EPDU:     %d\n", st.EPDU))
	sb.WriteString(fmt.Sprintf("  STS:      %d\n", st.STS))
	sb.WriteString(fmt.Sprintf("  SENSORS:  %d\n", st.Sensors))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  TOTAL:    %d discovered\n", st.Discovered))
	sb.WriteString("\n")
}

// writeDevices lists the hosts on which devices were found.
func (w *SimpleWriter) writeDevices(sb *strings.Builder, record *model.CampaignRecord) {
	hosts := foundHosts(record)
	if len(hosts) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("DISCOVERED DEVICES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(hosts) == 0 {
		sb.WriteString("  No devices discovered\n\n")
		return
	}

	for _, h := range hosts {
		sb.WriteString(fmt.Sprintf("  [+] %s via %s (port %d)\n", h.Address, h.Protocol, h.Port))
		if h.Credential != "" {
			sb.WriteString(fmt.Sprintf("      Credential: %s\n", h.Credential))
		}
		if len(h.Created) > 0 {
			sb.WriteString(fmt.Sprintf("      Assets:     %s\n", strings.Join(h.Created, ", ")))
		}
		if w.verbose {
			for _, c := range h.Candidates {
				sb.WriteString(fmt.Sprintf("      Probe:      %s:%d reachable=%t available=%s\n",
					c.Protocol, c.Port, c.Reachable, c.Available))
			}
		}
	}
	sb.WriteString("\n")
}

// writeErrors lists per-host errors in verbose mode.
func (w *SimpleWriter) writeErrors(sb *strings.Builder, record *model.CampaignRecord) {
	if !w.verbose {
		return
	}
	hosts := failedHosts(record)
	if len(hosts) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("ERRORS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(hosts) == 0 {
		sb.WriteString("  No errors\n\n")
		return
	}

	for _, h := range hosts {
		sb.WriteString(fmt.Sprintf("  [!] %s: %s\n", h.Address, h.Error))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by powerdisco\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
