package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/dupcheck/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the accumulated
// report from previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation, and the report to modify.
	// Returns an error if the step fails critically; non-critical problems
	// should be recorded as report warnings and return nil.
	Do(ctx context.Context, report *model.CheckReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
// It respects context cancellation and logs each step's execution.
//
// Design decision: We check context.Done() before each step rather than
// during, because steps handle their own cancellation. The lookup step,
// for example, passes ctx to every workflow request.
//
// Execution stops at the first failing step, because every step of a
// duplicate check depends on the one before it. The error is also recorded
// in the report.
func (p *Pipeline) Execute(ctx context.Context, report *model.CheckReport) error {
	p.logger.Debug("starting pipeline",
		"run_id", report.ID,
		"input", report.InputPath,
		"steps", p.StepNames(),
	)

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			report.TimedOut = true
			report.Error = ctx.Err()
			report.ErrorMessage = ctx.Err().Error()
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"run_id", report.ID,
			"input", report.InputPath,
		)

		if err := step.Do(ctx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"run_id", report.ID,
				"input", report.InputPath,
				"error", err,
			)

			report.Error = err
			report.ErrorMessage = err.Error()
			if ctx.Err() != nil {
				report.TimedOut = true
			}

			return err
		}
		p.logger.Debug("step completed",
			"step", step.Name(),
			"run_id", report.ID,
		)

		report.PerformedSteps = append(report.PerformedSteps, step.Name())
	}

	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
