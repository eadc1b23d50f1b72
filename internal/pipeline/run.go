package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/dupcheck/internal/model"
)

// OutputTimeLayout is the timestamp appended to default report names.
const OutputTimeLayout = "20060102_150405"

// DefaultOutputPath returns the report path used when none is given:
// the input's directory, its base name without extension, and a timestamp.
//
//	/data/doc.docx -> /data/doc_20250101_120000.md
func DefaultOutputPath(input string, now time.Time) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(input), base+"_"+now.Format(OutputTimeLayout)+".md")
}

// Options configures Run.
type Options struct {
	// Looker performs the workflow lookups. Required.
	Looker Looker

	// Concurrency is the number of lookups in flight. 0 or 1 is sequential.
	Concurrency int

	// Mode is workflow.ModeBlocking (default) or workflow.ModeStreaming.
	Mode string

	// SkipMalformed records malformed responses as warnings.
	SkipMalformed bool

	// MinScore drops matches scoring below it.
	MinScore float64

	// Overwrite allows replacing an existing output file.
	Overwrite bool

	// Logger is used by the pipeline and its steps.
	Logger *slog.Logger
}

// NewStandard builds the read, split, lookup, render pipeline.
func NewStandard(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := New(WithLogger(logger))
	p.AddSteps(
		NewReadStep(),
		NewSplitStep(),
		NewLookupStep(opts.Looker,
			WithLookupConcurrency(opts.Concurrency),
			WithLookupMode(opts.Mode),
			WithSkipMalformed(opts.SkipMalformed),
			WithMinScore(opts.MinScore),
			WithLookupLogger(logger),
		),
		NewRenderStep(WithOverwrite(opts.Overwrite)),
	)
	return p
}

// Run checks one document. An empty output uses DefaultOutputPath.
// The returned report is never nil; on failure it carries the error and
// whatever was gathered before it.
func Run(ctx context.Context, input, output string, opts Options) (*model.CheckReport, error) {
	if output == "" {
		output = DefaultOutputPath(input, time.Now())
	}

	r := model.NewCheckReport(input, output)
	err := NewStandard(opts).Execute(ctx, r)
	r.FinishedAt = time.Now()
	return r, err
}
