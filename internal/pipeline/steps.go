package pipeline

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/dupcheck/internal/document"
	"github.com/nao1215/dupcheck/internal/model"
	"github.com/nao1215/dupcheck/internal/report"
	"github.com/nao1215/dupcheck/internal/sentence"
	"github.com/nao1215/dupcheck/internal/workflow"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/errgroup"
)

// ReadStep loads the input document's text into the report.
// It also records a SHA3-256 digest of the raw input bytes, so that history
// entries for the same document can be recognised.
type ReadStep struct{}

// NewReadStep creates a new document reading step.
func NewReadStep() *ReadStep {
	return &ReadStep{}
}

// Name returns the step name.
func (s *ReadStep) Name() string {
	return "read"
}

// Do executes the read step.
func (s *ReadStep) Do(_ context.Context, r *model.CheckReport) error {
	raw, err := os.ReadFile(r.InputPath)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	sum := sha3.Sum256(raw)
	r.Digest = hex.EncodeToString(sum[:])

	text, err := document.ReadText(r.InputPath)
	if err != nil {
		return err
	}
	r.Text = text
	return nil
}

// SplitStep splits the document text into sentences.
type SplitStep struct{}

// NewSplitStep creates a new sentence splitting step.
func NewSplitStep() *SplitStep {
	return &SplitStep{}
}

// Name returns the step name.
func (s *SplitStep) Name() string {
	return "split"
}

// Do executes the split step.
func (s *SplitStep) Do(_ context.Context, r *model.CheckReport) error {
	r.Sentences = sentence.Split(r.Text)
	return nil
}

// Looker looks a sentence up in the similarity workflow.
// *workflow.Client implements it.
type Looker interface {
	Lookup(ctx context.Context, sentence string) (workflow.Outcome, error)
	LookupStream(ctx context.Context, sentence string) (workflow.Outcome, error)
}

// LookupStep queries the workflow once per distinct sentence and records
// the matches.
//
// Design decision: Results are gathered into a slice indexed by sentence
// position and merged after all lookups finish. The match record therefore
// has the same order whether lookups ran one at a time or concurrently.
type LookupStep struct {
	looker Looker

	// concurrency is the number of lookups in flight. 1 is sequential.
	concurrency int

	// mode is workflow.ModeBlocking or workflow.ModeStreaming.
	mode string

	// skipMalformed turns a malformed response into a warning.
	skipMalformed bool

	// minScore drops matches scoring below it.
	minScore float64

	logger *slog.Logger
}

// LookupStepOption configures a LookupStep.
type LookupStepOption func(*LookupStep)

// WithLookupConcurrency sets the number of concurrent lookups.
// Values below 1 are ignored.
func WithLookupConcurrency(n int) LookupStepOption {
	return func(s *LookupStep) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLookupMode selects blocking or streaming workflow calls.
func WithLookupMode(mode string) LookupStepOption {
	return func(s *LookupStep) {
		if mode != "" {
			s.mode = mode
		}
	}
}

// WithSkipMalformed records malformed responses as warnings instead of
// failing the run.
func WithSkipMalformed(skip bool) LookupStepOption {
	return func(s *LookupStep) {
		s.skipMalformed = skip
	}
}

// WithMinScore drops matches whose score is below minScore.
func WithMinScore(minScore float64) LookupStepOption {
	return func(s *LookupStep) {
		s.minScore = minScore
	}
}

// WithLookupLogger sets a custom logger for the lookup step.
func WithLookupLogger(logger *slog.Logger) LookupStepOption {
	return func(s *LookupStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewLookupStep creates a lookup step. By default lookups are sequential
// and use blocking mode.
func NewLookupStep(looker Looker, opts ...LookupStepOption) *LookupStep {
	s := &LookupStep{
		looker:      looker,
		concurrency: 1,
		mode:        workflow.ModeBlocking,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *LookupStep) Name() string {
	return "lookup"
}

// lookupResult is the outcome of one sentence.
type lookupResult struct {
	matches []model.Match
	warning string
}

// Do executes the lookup step.
func (s *LookupStep) Do(ctx context.Context, r *model.CheckReport) error {
	sentences := distinct(r.Sentences)
	results := make([]lookupResult, len(sentences))

	s.logger.Debug("looking up sentences",
		"sentences", len(sentences),
		"concurrency", s.concurrency,
		"mode", s.mode,
	)

	if s.concurrency <= 1 {
		for i, text := range sentences {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.lookup(ctx, i, text)
			if err != nil {
				return err
			}
			results[i] = res
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)

		for i, text := range sentences {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := s.lookup(gctx, i, text)
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}

	for i, res := range results {
		if res.warning != "" {
			r.AddWarning(res.warning)
		}
		r.Matches.Add(sentences[i], res.matches...)
	}

	return nil
}

// lookup runs one workflow call and applies the malformed and score rules.
func (s *LookupStep) lookup(ctx context.Context, i int, text string) (lookupResult, error) {
	var (
		outcome workflow.Outcome
		err     error
	)
	if s.mode == workflow.ModeStreaming {
		outcome, err = s.looker.LookupStream(ctx, text)
	} else {
		outcome, err = s.looker.Lookup(ctx, text)
	}
	if err != nil {
		return lookupResult{}, fmt.Errorf("lookup of sentence %d failed: %w", i+1, err)
	}

	switch o := outcome.(type) {
	case workflow.Malformed:
		if !s.skipMalformed {
			return lookupResult{}, fmt.Errorf("lookup of sentence %d failed: %w", i+1, o.Err())
		}
		s.logger.Warn("skipping malformed workflow response",
			"sentence", i+1,
			"reason", o.Reason,
		)
		return lookupResult{warning: fmt.Sprintf("sentence %d skipped: %s", i+1, o.Reason)}, nil
	case workflow.Matched:
		return lookupResult{matches: s.filter(o.Matches)}, nil
	}

	return lookupResult{}, fmt.Errorf("lookup of sentence %d failed: unexpected outcome %T", i+1, outcome)
}

func (s *LookupStep) filter(matches []model.Match) []model.Match {
	if s.minScore <= 0 {
		return matches
	}
	kept := make([]model.Match, 0, len(matches))
	for _, m := range matches {
		if m.Score >= s.minScore {
			kept = append(kept, m)
		}
	}
	return kept
}

// distinct returns sentences with later repeats removed, keeping the
// position of the first occurrence.
func distinct(sentences []string) []string {
	seen := make(map[string]struct{}, len(sentences))
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// RenderStep renders the match record and writes it to the report's output
// path. The output format follows the path's extension.
type RenderStep struct {
	overwrite bool
}

// RenderStepOption configures a RenderStep.
type RenderStepOption func(*RenderStep)

// WithOverwrite allows RenderStep to replace an existing output file.
func WithOverwrite(overwrite bool) RenderStepOption {
	return func(s *RenderStep) {
		s.overwrite = overwrite
	}
}

// NewRenderStep creates a new report rendering step.
func NewRenderStep(opts ...RenderStepOption) *RenderStep {
	s := &RenderStep{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *RenderStep) Name() string {
	return "render"
}

// Do executes the render step. Nothing is written if an earlier step failed.
func (s *RenderStep) Do(_ context.Context, r *model.CheckReport) error {
	if r.Failed() {
		return nil
	}
	if err := document.WriteText(r.OutputPath, report.Render(r.Matches), s.overwrite); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
