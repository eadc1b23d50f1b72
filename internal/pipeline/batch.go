package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/dupcheck/internal/model"
	"golang.org/x/sync/errgroup"
)

// Job is one document to check.
type Job struct {
	// Input is the document path.
	Input string

	// Output is the report path. Empty uses DefaultOutputPath.
	Output string
}

// BatchProcessor checks multiple documents concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-document execution
// 2. Document-level and sentence-level concurrency stay independent knobs
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each document.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of documents processed at once.
	concurrency int

	// now stamps default output paths.
	now func() time.Time

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent documents.
// Default is 2 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each document so that
// pipeline state never leaks between runs.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     2,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch checks the jobs and returns one report per job, in job order.
// A failed document does not stop the others; its report carries the error.
// The returned error is only non-nil when ctx is cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, jobs []Job) ([]*model.CheckReport, error) {
	bp.logger.Info("starting batch processing",
		"documents", len(jobs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	results := make([]*model.CheckReport, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			output := job.Output
			if output == "" {
				output = DefaultOutputPath(job.Input, bp.now())
			}
			r := model.NewCheckReport(job.Input, output)
			results[i] = r

			if err := ctx.Err(); err != nil {
				r.TimedOut = true
				r.Error = err
				r.ErrorMessage = err.Error()
				return err
			}

			err := bp.pipelineFactory().Execute(ctx, r)
			r.FinishedAt = time.Now()
			if err != nil {
				bp.logger.Warn("check failed",
					"input", job.Input,
					"error", err,
				)
				return nil
			}

			bp.logger.Info("check completed",
				"input", job.Input,
				"output", r.OutputPath,
				"matched_sentences", r.Matches.Len(),
			)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"documents", len(jobs),
		"elapsed", time.Since(startTime),
	)

	return results, err
}
