package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/dupcheck/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.CheckReport {
	report := model.NewCheckReport("input.md", "input_20250101_120000.md")
	report.Sentences = []string{"第一句", "第二句", "第三句"}
	report.Matches.Add("第一句",
		model.NewMatch("重复的第一句", json.Number("0.9")),
		model.NewMatch("另一个", json.Number("1.0")),
	)
	report.Matches.Add("第三句", model.NewMatch("X", json.Number("0.75")))
	report.FinishedAt = report.StartedAt.Add(2 * time.Second)
	return report
}

// TestRender tests the exact layout of the duplicate report.
func TestRender(t *testing.T) {
	t.Parallel()

	t.Run("empty record renders title only", func(t *testing.T) {
		t.Parallel()

		got := Render(model.NewMatchRecord())
		if got != "# 重复内容检测结果\n\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("single match", func(t *testing.T) {
		t.Parallel()

		record := model.NewMatchRecord()
		record.Add("句子A", model.NewMatch("X", json.Number("0.9")))

		want := "# 重复内容检测结果\n\n" +
			"## 原句\n\n句子A\n\n### 重复内容\n\n" +
			"**重复项 1** (Similarity: 0.9)\n\nX\n\n" +
			"---\n\n"

		if got := Render(record); got != want {
			t.Errorf("Render() =\n%q\nwant\n%q", got, want)
		}
	})

	t.Run("multiple sentences keep order and numbering", func(t *testing.T) {
		t.Parallel()

		record := createTestReport().Matches

		want := "# 重复内容检测结果\n\n" +
			"## 原句\n\n第一句\n\n### 重复内容\n\n" +
			"**重复项 1** (Similarity: 0.9)\n\n重复的第一句\n\n" +
			"**重复项 2** (Similarity: 1.0)\n\n另一个\n\n" +
			"---\n\n" +
			"## 原句\n\n第三句\n\n### 重复内容\n\n" +
			"**重复项 1** (Similarity: 0.75)\n\nX\n\n" +
			"---\n\n"

		if got := Render(record); got != want {
			t.Errorf("Render() =\n%q\nwant\n%q", got, want)
		}
	})

	t.Run("markdown characters pass through", func(t *testing.T) {
		t.Parallel()

		record := model.NewMatchRecord()
		record.Add("*强调* [链接](x)", model.NewMatch("`code` # not a heading", json.Number("0.5")))

		got := Render(record)
		if !strings.Contains(got, "\n*强调* [链接](x)\n") {
			t.Errorf("sentence was altered:\n%s", got)
		}
		if !strings.Contains(got, "\n`code` # not a heading\n") {
			t.Errorf("content was altered:\n%s", got)
		}
	})
}

// TestMarkdownWriter tests the Markdown writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("Write outputs the rendered report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		report := createTestReport()

		n, err := NewMarkdownWriter(&buf).Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != Render(report.Matches) {
			t.Error("expected writer output to equal Render()")
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes, got %d", buf.Len(), n)
		}
	})

	t.Run("WriteSummary writes a table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		summary := model.NewSummary(createTestReport())
		summary.Warnings = []string{"skipped one sentence"}

		if _, err := NewMarkdownWriter(&buf).WriteSummary(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"Matched sentences", "66.7%", "skipped one sentence"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report with summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded struct {
			Summary model.Summary `json:"summary"`
			Report  struct {
				InputPath string                  `json:"input_path"`
				Matches   []model.SentenceMatches `json:"matches"`
			} `json:"report"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}

		if decoded.Summary.MatchCount != 3 {
			t.Errorf("expected 3 matches in summary, got %d", decoded.Summary.MatchCount)
		}
		if decoded.Report.InputPath != "input.md" {
			t.Errorf("unexpected input path %q", decoded.Report.InputPath)
		}
		if len(decoded.Report.Matches) != 2 || decoded.Report.Matches[1].Sentence != "第三句" {
			t.Errorf("expected ordered matches, got %+v", decoded.Report.Matches)
		}
	})

	t.Run("pretty print adds indentation", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())
		if _, err := w.WriteSummary(model.NewSummary(createTestReport())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "\n  \"id\"") {
			t.Errorf("expected indented output, got %s", buf.String())
		}
		if !strings.HasSuffix(buf.String(), "\n") {
			t.Error("expected trailing newline")
		}
	})
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"DUPLICATE CHECK REPORT", "Sentences:         3", "Matches:           3", "Status:            Complete"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
		if strings.Contains(output, "MATCHES") {
			t.Error("expected matches to be hidden without verbose")
		}
	})

	t.Run("verbose lists matches", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[1.0] 另一个") {
			t.Errorf("expected match line, got:\n%s", output)
		}
	})

	t.Run("shows error status", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Error = errors.New("workflow down")
		report.ErrorMessage = report.Error.Error()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "ERROR - workflow down") {
			t.Errorf("expected error status, got:\n%s", buf.String())
		}
	})
}

func TestPreview(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("字", 100)
	got := preview(long)
	if n := len([]rune(got)); n != previewRunes {
		t.Errorf("expected %d runes, got %d", previewRunes, n)
	}
	if preview("a\nb   c") != "a b c" {
		t.Errorf("expected whitespace collapsed, got %q", preview("a\nb   c"))
	}
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var md, js bytes.Buffer
	mw := NewMultiWriter(NewMarkdownWriter(&md), NewJSONWriter(&js))

	n, err := mw.Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md.Len() == 0 || js.Len() == 0 {
		t.Error("expected both writers to receive output")
	}
	if n != md.Len()+js.Len() {
		t.Errorf("expected total %d, got %d", md.Len()+js.Len(), n)
	}
}
