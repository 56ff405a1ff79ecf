package report

import (
	"io"
	"time"

	"github.com/nao1215/powerdisco/internal/model"
)

// Writer defines the interface for report output.
// Implementations write campaign records in various formats.
type Writer interface {
	// Write outputs the report of one campaign.
	// Returns the number of bytes written and any error encountered.
	Write(record *model.CampaignRecord) (int, error)

	// WriteHistory outputs a summary of several campaigns, newest first.
	WriteHistory(records []model.CampaignRecord) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(record *model.CampaignRecord) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(record)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteHistory outputs the history to all configured Writers.
func (m *MultiWriter) WriteHistory(records []model.CampaignRecord) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHistory(records)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// outcome describes how a campaign ended.
func outcome(record *model.CampaignRecord) string {
	switch {
	case record.Stuck:
		return "Stuck (force-terminated)"
	case record.Cancelled:
		return "Cancelled by user"
	case record.Status.State == model.StateTerminated:
		return "Complete"
	default:
		return record.Status.State.String()
	}
}

// foundHosts returns the hosts on which a protocol and credential matched.
func foundHosts(record *model.CampaignRecord) []model.HostResult {
	hosts := make([]model.HostResult, 0, len(record.Hosts))
	for _, h := range record.Hosts {
		if h.Found() {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// failedHosts returns the hosts whose task reported an error.
func failedHosts(record *model.CampaignRecord) []model.HostResult {
	hosts := make([]model.HostResult, 0)
	for _, h := range record.Hosts {
		if h.Error != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

const (
	timeLayout        = "2006-01-02 15:04:05 MST"
	durationPrecision = 100 * time.Millisecond
)
