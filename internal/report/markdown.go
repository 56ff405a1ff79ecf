package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/powerdisco/internal/model"
)

// MarkdownWriter outputs reports in Markdown format, built with the
// nao1215/markdown fluent API.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the campaign report in Markdown format.
func (w *MarkdownWriter) Write(record *model.CampaignRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, record)
	w.writeSummary(md, record)
	w.writeDevices(md, record)
	w.writeErrors(md, record)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteHistory outputs a table with one row per campaign.
func (w *MarkdownWriter) WriteHistory(records []model.CampaignRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Campaign History")
	md.PlainText("")

	if len(records) == 0 {
		md.PlainText("No campaigns recorded.")
		md.PlainText("")
	} else {
		rows := make([][]string, len(records))
		for i := range records {
			rec := &records[i]
			rows[i] = []string{
				"`" + rec.ID + "`",
				string(rec.Request.Kind),
				rec.StartedAt.Format(timeLayout),
				strconv.Itoa(rec.Addresses),
				strconv.FormatUint(uint64(rec.Status.Discovered), 10),
				outcome(rec),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Campaign", "Kind", "Started", "Addresses", "Discovered", "Outcome"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, record *model.CampaignRecord) {
	md.H1("powerdisco Campaign Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Campaign", "`" + record.ID + "`"},
			{"Kind", string(record.Request.Kind)},
			{"Started", record.StartedAt.Format(timeLayout)},
			{"Duration", record.Duration().Round(durationPrecision).String()},
			{"Addresses", strconv.Itoa(record.Addresses)},
			{"Status", w.getStatusText(record)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) getStatusText(record *model.CampaignRecord) string {
	switch {
	case record.Stuck:
		return "⚠️ " + outcome(record)
	case record.Cancelled:
		return "⏹️ " + outcome(record)
	default:
		return "✅ " + outcome(record)
	}
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, record *model.CampaignRecord) {
	st := record.Status

	md.H2("Discovery Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Subtype", "Count"},
		Rows: [][]string{
			{"UPS", formatCount(st.UPS)},
			{"EPDU", formatCount(st.EPDU)},
			{"STS", formatCount(st.STS)},
			{"Sensor", formatCount(st.Sensors)},
			{"**Total**", "**" + formatCount(st.Discovered) + "**"},
		},
	})
	md.PlainText("")

	if st.Discovered > 0 {
		w.writePieChart(md, st)
	}

	w.writeAlert(md, record)
}

// writePieChart writes a mermaid pie chart of the discovered subtypes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, st model.CampaignStatus) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Discovered Devices"),
		piechart.WithShowData(true),
	)

	if st.UPS > 0 {
		chart.LabelAndIntValue("UPS", uint64(st.UPS))
	}
	if st.EPDU > 0 {
		chart.LabelAndIntValue("EPDU", uint64(st.EPDU))
	}
	if st.STS > 0 {
		chart.LabelAndIntValue("STS", uint64(st.STS))
	}
	if st.Sensors > 0 {
		chart.LabelAndIntValue("Sensor", uint64(st.Sensors))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, record *model.CampaignRecord) {
	switch {
	case record.Stuck:
		md.Cautionf(
			"The campaign made no progress and was force-terminated. Results cover %d of %d addresses.",
			len(record.Hosts), record.Addresses,
		)
	case record.Cancelled:
		md.Warningf("The campaign was cancelled. Results cover %d of %d addresses.", len(record.Hosts), record.Addresses)
	case record.Status.Discovered > 0:
		md.Tip(fmt.Sprintf("%d device(s) discovered.", record.Status.Discovered))
	default:
		md.Note("No power devices were discovered.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeDevices(md *markdown.Markdown, record *model.CampaignRecord) {
	md.H2("Discovered Devices")
	md.PlainText("")

	hosts := foundHosts(record)
	if len(hosts) == 0 {
		md.PlainText("No devices discovered.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(hosts))
	for i, h := range hosts {
		cred := h.Credential
		if cred == "" {
			cred = "-"
		}
		assets := strings.Join(h.Created, ", ")
		if assets == "" {
			assets = "-"
		}
		rows[i] = []string{
			h.Address,
			h.Protocol,
			strconv.Itoa(int(h.Port)),
			cred,
			truncateString(assets, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Address", "Protocol", "Port", "Credential", "Assets"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, record *model.CampaignRecord) {
	hosts := failedHosts(record)
	if len(hosts) == 0 {
		return
	}

	md.H2("Errors")
	md.PlainText("")
	for _, h := range hosts {
		md.Details(h.Address, h.Error)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [powerdisco](https://github.com/nao1215/powerdisco)*")
}

func formatCount(n uint32) string {
	return strconv.FormatUint(uint64(n), 10)
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
