// Package report renders discovery campaign records.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown output for sharing campaign results
//
// Report data lives in the model package (model.CampaignRecord); writers
// only decide how it looks. Writers implement the Writer interface, so
// they can be combined with MultiWriter.
package report
