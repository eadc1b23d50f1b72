// Package report renders duplicate-check results.
//
// This package contains writers for different output formats:
//   - MarkdownWriter: the duplicate report document written next to each run
//   - JSONWriter: structured JSON output for tool integration
//   - SimpleWriter: human-readable text output for terminal display
//
// Design decision: Report writing is kept apart from the report data
// structures (which are in the model package). New output formats can be
// added without touching the pipeline that fills the data in.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
