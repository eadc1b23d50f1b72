package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/dupcheck/internal/workflow"
)

func TestDefaultOutputPath(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	tests := []struct {
		input string
		want  string
	}{
		{input: "/data/doc.docx", want: "/data/doc_20250304_050607.md"},
		{input: "/data/report.v2.md", want: "/data/report.v2_20250304_050607.md"},
		{input: "notes.txt", want: "notes_20250304_050607.md"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := DefaultOutputPath(tt.input, now); got != tt.want {
				t.Errorf("DefaultOutputPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// fakeWorkflow answers every sentence containing "dup" with one match.
func fakeWorkflow(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Inputs map[string]string `json:"inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		sentence := req.Inputs["content"]
		result := []any{}
		if sentence == "dup" {
			result = append(result, map[string]any{
				"content":  "known " + sentence,
				"metadata": map[string]any{"score": json.Number("0.95")},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"status":  "succeeded",
				"outputs": map[string]any{"result": result},
			},
		})
	}))
}

func TestRun(t *testing.T) {
	t.Parallel()

	srv := fakeWorkflow(t)
	t.Cleanup(srv.Close)

	client, err := workflow.NewClient(workflow.Config{
		BaseURL: srv.URL,
		APIKey:  "app-test",
		User:    "tester",
	})
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	input := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(input, []byte("first，dup。last"), 0o600); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("writes report to default path", func(t *testing.T) {
		t.Parallel()

		r, err := Run(context.Background(), input, "", Options{Looker: client, Logger: logger})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if filepath.Dir(r.OutputPath) != dir {
			t.Errorf("expected report next to input, got %q", r.OutputPath)
		}

		data, err := os.ReadFile(r.OutputPath)
		if err != nil {
			t.Fatalf("read report: %v", err)
		}
		want := "# 重复内容检测结果\n\n" +
			"## 原句\n\ndup\n\n### 重复内容\n\n" +
			"**重复项 1** (Similarity: 0.95)\n\nknown dup\n\n" +
			"---\n\n"
		if string(data) != want {
			t.Errorf("report =\n%q\nwant\n%q", data, want)
		}
		if len(r.Sentences) != 3 {
			t.Errorf("expected 3 sentences, got %v", r.Sentences)
		}
		if r.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set")
		}
		if len(r.PerformedSteps) != 4 {
			t.Errorf("expected 4 performed steps, got %v", r.PerformedSteps)
		}
	})

	t.Run("concurrent run writes the same report", func(t *testing.T) {
		t.Parallel()

		out := filepath.Join(t.TempDir(), "out.md")
		r, err := Run(context.Background(), input, out, Options{Looker: client, Concurrency: 4, Logger: logger})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.OutputPath != out {
			t.Errorf("expected explicit output path, got %q", r.OutputPath)
		}
		if r.Matches.Len() != 1 {
			t.Errorf("expected 1 matched sentence, got %d", r.Matches.Len())
		}
	})

	t.Run("failure leaves no report", func(t *testing.T) {
		t.Parallel()

		out := filepath.Join(t.TempDir(), "out.md")
		r, err := Run(context.Background(), filepath.Join(dir, "missing.md"), out, Options{Looker: client, Logger: logger})
		if err == nil {
			t.Fatal("expected error")
		}
		if !r.Failed() {
			t.Error("expected report to be marked failed")
		}
		if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
			t.Error("expected no report file")
		}
	})
}
