package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/nao1215/dupcheck/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, report *model.CheckReport) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, report *model.CheckReport) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, report)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if n := len(p.StepNames()); n != 0 {
			t.Errorf("expected 0 steps, got %d", n)
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("adds single step", func(t *testing.T) {
		t.Parallel()

		p := New()
		step := &mockStep{name: "test-step"}

		p.AddStep(step)

		if n := len(p.StepNames()); n != 1 {
			t.Errorf("expected 1 steps, got %d", n)
		}
	})

	t.Run("adds multiple steps with AddSteps", func(t *testing.T) {
		t.Parallel()

		p := New()
		step1 := &mockStep{name: "step-1"}
		step2 := &mockStep{name: "step-2"}
		step3 := &mockStep{name: "step-3"}

		p.AddSteps(step1, step2, step3)

		if n := len(p.StepNames()); n != 3 {
			t.Errorf("expected 3 steps, got %d", n)
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "first"})
		p.AddStep(&mockStep{name: "second"})
		p.AddStep(&mockStep{name: "third"})

		names := p.StepNames()

		expected := []string{"first", "second", "third"}
		for i, name := range names {
			if name != expected[i] {
				t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		executionOrder := make([]string, 0)

		p := New()
		p.AddStep(&mockStep{
			name: "step-1",
			doFunc: func(_ context.Context, _ *model.CheckReport) error {
				executionOrder = append(executionOrder, "step-1")
				return nil
			},
		})
		p.AddStep(&mockStep{
			name: "step-2",
			doFunc: func(_ context.Context, _ *model.CheckReport) error {
				executionOrder = append(executionOrder, "step-2")
				return nil
			},
		})

		report := model.NewCheckReport("in.md", "out.md")
		err := p.Execute(context.Background(), report)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(executionOrder) != 2 {
			t.Fatalf("expected 2 executions, got %d", len(executionOrder))
		}
		if executionOrder[0] != "step-1" || executionOrder[1] != "step-2" {
			t.Errorf("wrong execution order: %v", executionOrder)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		step2Called := false

		p := New()
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *model.CheckReport) error {
				return expectedErr
			},
		})
		p.AddStep(&mockStep{
			name: "should-not-run",
			doFunc: func(_ context.Context, _ *model.CheckReport) error {
				step2Called = true
				return nil
			},
		})

		report := model.NewCheckReport("in.md", "out.md")
		err := p.Execute(context.Background(), report)

		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if step2Called {
			t.Error("second step should not have been called")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		stepCalled := false
		p := New()
		p.AddStep(&mockStep{
			name: "should-not-run",
			doFunc: func(_ context.Context, _ *model.CheckReport) error {
				stepCalled = true
				return nil
			},
		})

		report := model.NewCheckReport("in.md", "out.md")
		err := p.Execute(ctx, report)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if stepCalled {
			t.Error("step should not have been called")
		}
		if !report.TimedOut {
			t.Error("report.TimedOut should be true")
		}
	})

	t.Run("records performed steps", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "step-a"})
		p.AddStep(&mockStep{name: "step-b"})

		report := model.NewCheckReport("in.md", "out.md")
		err := p.Execute(context.Background(), report)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.PerformedSteps) != 2 {
			t.Errorf("expected 2 performed steps, got %d", len(report.PerformedSteps))
		}
	})

	t.Run("records error in report", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("test error")

		p := New()
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *model.CheckReport) error {
				return expectedErr
			},
		})

		report := model.NewCheckReport("in.md", "out.md")
		_ = p.Execute(context.Background(), report) //nolint:errcheck // We check error via report.Error

		if report.Error == nil {
			t.Error("expected error to be recorded in report")
		}
		if report.ErrorMessage != expectedErr.Error() {
			t.Errorf("expected error message %q, got %q", expectedErr.Error(), report.ErrorMessage)
		}
	})
}

// TestPipelineStepNames tests the StepNames method.
func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	t.Run("returns empty slice for empty pipeline", func(t *testing.T) {
		t.Parallel()

		p := New()
		names := p.StepNames()

		if len(names) != 0 {
			t.Errorf("expected empty slice, got %v", names)
		}
	})

	t.Run("returns names in order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(
			&mockStep{name: "alpha"},
			&mockStep{name: "beta"},
			&mockStep{name: "gamma"},
		)

		names := p.StepNames()

		if len(names) != 3 {
			t.Fatalf("expected 3 names, got %d", len(names))
		}
		if names[0] != "alpha" || names[1] != "beta" || names[2] != "gamma" {
			t.Errorf("unexpected names: %v", names)
		}
	})
}

// TestPipelineWithLogger tests the WithLogger option.
func TestPipelineWithLogger(t *testing.T) {
	t.Parallel()

	t.Run("sets custom logger", func(t *testing.T) {
		t.Parallel()

		// Note: We can't directly test that the logger is set
		// since it's a private field, but we test that it doesn't panic
		p := New(WithLogger(nil))
		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
	})

	t.Run("logs the steps at start", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		p := New(WithLogger(logger))
		p.AddSteps(&mockStep{name: "read"}, &mockStep{name: "split"})

		report := model.NewCheckReport("in.md", "out.md")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "msg=\"starting pipeline\"") ||
			!strings.Contains(buf.String(), "steps=\"[read split]\"") {
			t.Errorf("expected start log with step names, got %q", buf.String())
		}
	})
}

// TestMockStep tests the mockStep helper.
func TestMockStep(t *testing.T) {
	t.Parallel()

	t.Run("increments call count", func(t *testing.T) {
		t.Parallel()

		step := &mockStep{name: "test"}
		report := model.NewCheckReport("in.md", "out.md")

		_ = step.Do(context.Background(), report)
		_ = step.Do(context.Background(), report)
		_ = step.Do(context.Background(), report)

		if step.callCount != 3 {
			t.Errorf("expected call count 3, got %d", step.callCount)
		}
	})

	t.Run("returns name correctly", func(t *testing.T) {
		t.Parallel()

		step := &mockStep{name: "my-step"}
		if step.Name() != "my-step" {
			t.Errorf("expected name 'my-step', got %q", step.Name())
		}
	})

	t.Run("returns nil when no doFunc", func(t *testing.T) {
		t.Parallel()

		step := &mockStep{name: "test"}
		err := step.Do(context.Background(), nil)
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})
}
