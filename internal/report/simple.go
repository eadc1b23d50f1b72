package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/dupcheck/internal/model"
)

// previewRunes limits how much of a sentence or match is printed per line.
const previewRunes = 60

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose prints every match instead of only the counts.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with every match listed.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary and, with verbose, each matched sentence.
func (w *SimpleWriter) Write(report *model.CheckReport) (int, error) {
	var sb strings.Builder

	w.writeSummary(&sb, model.NewSummary(report))
	if w.verbose {
		w.writeMatches(&sb, report.Matches)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteSummary outputs the summary only.
func (w *SimpleWriter) WriteSummary(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeSummary(&sb, summary)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, s *model.Summary) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      DUPLICATE CHECK REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Input:             %s\n", s.InputPath)
	fmt.Fprintf(sb, "Report:            %s\n", s.OutputPath)
	fmt.Fprintf(sb, "Run ID:            %s\n", s.ID)

	switch {
	case s.TimedOut:
		sb.WriteString("Status:            CANCELLED (partial results)\n")
	case s.Error != "":
		fmt.Fprintf(sb, "Status:            ERROR - %s\n", s.Error)
	default:
		sb.WriteString("Status:            Complete\n")
	}
	sb.WriteString("\n")

	fmt.Fprintf(sb, "  Sentences:         %d\n", s.SentenceCount)
	fmt.Fprintf(sb, "  Matched sentences: %d (%.1f%%)\n", s.MatchedSentences, s.DuplicateRatio*100)
	fmt.Fprintf(sb, "  Matches:           %d\n", s.MatchCount)
	if s.MatchCount > 0 {
		fmt.Fprintf(sb, "  Top score:         %g\n", s.TopScore)
	}
	sb.WriteString("\n")

	if len(s.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, warn := range s.Warnings {
			fmt.Fprintf(sb, "  [!] %s\n", warn)
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeMatches(sb *strings.Builder, record *model.MatchRecord) {
	if record.Len() == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("MATCHES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, entry := range record.Entries() {
		fmt.Fprintf(sb, "* %s\n", preview(entry.Sentence))
		for _, m := range entry.Matches {
			fmt.Fprintf(sb, "    [%s] %s\n", m.ScoreLiteral(), preview(m.Content))
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// preview shortens s to previewRunes characters on a single line.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:previewRunes-3]) + "..."
}
