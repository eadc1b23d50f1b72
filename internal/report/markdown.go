package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/dupcheck/internal/model"
	"github.com/nao1215/markdown"
)

// Headings of the duplicate report. Readers of existing reports rely on
// these exact strings.
const (
	Title           = "重复内容检测结果"
	SentenceHeading = "原句"
	MatchesHeading  = "重复内容"
)

// Render returns the duplicate report for a match record.
//
// The layout is one H1 title followed by one section per sentence, in
// record order. Sentence and match text is written verbatim without
// escaping. An empty record renders as the title alone.
func Render(record *model.MatchRecord) string {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)
	writeMatches(md, record)
	return md.String()
}

func writeMatches(md *markdown.Markdown, record *model.MatchRecord) {
	md.H1(Title)
	md.PlainText("")

	for _, entry := range record.Entries() {
		md.H2(SentenceHeading)
		md.PlainText("")
		md.PlainText(entry.Sentence)
		md.PlainText("")
		md.H3(MatchesHeading)
		md.PlainText("")

		for i, m := range entry.Matches {
			md.PlainTextf("**重复项 %d** (Similarity: %s)", i+1, m.ScoreLiteral())
			md.PlainText("")
			md.PlainText(m.Content)
			md.PlainText("")
		}

		md.HorizontalRule()
		md.PlainText("")
	}
	md.PlainText("")
}

// MarkdownWriter outputs reports in Markdown format.
// Write produces the duplicate report document; WriteSummary produces a
// short table for pasting into issues or chat.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the duplicate report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CheckReport) (int, error) {
	return io.WriteString(w.output, Render(report.Matches))
}

// WriteSummary outputs the run summary as a Markdown table.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H2(Title)
	md.PlainText("")

	rows := [][]string{
		{"Input", summary.InputPath},
		{"Output", summary.OutputPath},
		{"Sentences", strconv.Itoa(summary.SentenceCount)},
		{"Matched sentences", strconv.Itoa(summary.MatchedSentences)},
		{"Matches", strconv.Itoa(summary.MatchCount)},
		{"Duplicate ratio", fmt.Sprintf("%.1f%%", summary.DuplicateRatio*100)},
		{"Top score", strconv.FormatFloat(summary.TopScore, 'f', -1, 64)},
	}
	if summary.Error != "" {
		rows = append(rows, []string{"Error", summary.Error})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Item", "Value"},
		Rows:   rows,
	})

	if len(summary.Warnings) > 0 {
		md.PlainText("")
		md.Warningf("%d warning(s) were recorded during the run.", len(summary.Warnings))
		md.PlainText("")
		md.BulletList(summary.Warnings...)
	}

	return len(md.String()), md.Build()
}
