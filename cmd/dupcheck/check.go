package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/dupcheck/internal/config"
	"github.com/nao1215/dupcheck/internal/database"
	"github.com/nao1215/dupcheck/internal/model"
	"github.com/nao1215/dupcheck/internal/pipeline"
	"github.com/nao1215/dupcheck/internal/report"
	"github.com/nao1215/dupcheck/internal/workflow"
)

// defaultBatchSize is the number of documents checked at once.
const defaultBatchSize = 2

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <document>...",
		Short: "Check documents for duplicated sentences",
		Long: `Check splits each document into sentences, looks every sentence up in the
workflow, and writes a markdown report next to the document.

Supported formats: .md .markdown .txt .text .docx .csv .xlsx .html .htm

Lookups are sequential unless --concurrency is given. With several
documents, up to --batch documents are checked at the same time.

Examples:
  # Check one document; the report is written to paper_<timestamp>.md
  dupcheck check paper.docx

  # Choose the report path
  dupcheck check paper.docx -o reports/paper.md

  # Check a folder of documents with 4 parallel lookups each
  dupcheck check --concurrency 4 drafts/*.md

  # Print the run as JSON
  dupcheck check --json paper.md

  # Keep a JSON lines record of the runs next to the terminal summary
  dupcheck check --save-json results.jsonl drafts/*.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheckCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		"Report path (only with a single document; default: <input>_<timestamp>.md)")
	cmd.Flags().BoolP("json", "j", false,
		"Print the run result as JSON")
	cmd.Flags().BoolP("stream", "s", false,
		"Use the streaming workflow response mode")
	cmd.Flags().IntP("concurrency", "n", 1,
		"Parallel lookups per document")
	cmd.Flags().IntP("batch", "b", defaultBatchSize,
		"Documents checked at the same time")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite an existing report file")
	cmd.Flags().Bool("skip-malformed", false,
		"Record malformed workflow responses as warnings instead of failing")
	cmd.Flags().Float64("min-score", 0,
		"Drop matches scoring below this value")
	cmd.Flags().String("save-json", "",
		"Also write the run results to this file as JSON lines")

	return cmd
}

// checkOptions are the check flags.
type checkOptions struct {
	output    string
	json      bool
	saveJSON  string
	batch     int
	overwrite bool
	pipeline  pipeline.Options
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts, err := buildCheckOptions(cmd, cfg)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if opts.output != "" && len(args) > 1 {
		return errors.New("--output can only be used with a single document")
	}

	logger := newLogger(cmd, cfg)
	slog.SetDefault(logger)

	client, err := newWorkflowClient(cfg, logger, nil)
	if err != nil {
		return err
	}
	opts.pipeline.Looker = client
	opts.pipeline.Logger = logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCheck(ctx, cmd.OutOrStdout(), cfg, opts, args, logger)
}

// buildCheckOptions merges the check flags over the configuration.
// Flags left at their defaults keep the configured values.
func buildCheckOptions(cmd *cobra.Command, cfg *config.Config) (checkOptions, error) {
	var opts checkOptions
	var err error

	if opts.output, err = cmd.Flags().GetString("output"); err != nil {
		return opts, err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	if opts.saveJSON, err = cmd.Flags().GetString("save-json"); err != nil {
		return opts, err
	}
	if opts.batch, err = cmd.Flags().GetInt("batch"); err != nil {
		return opts, err
	}
	if opts.overwrite, err = cmd.Flags().GetBool("force"); err != nil {
		return opts, err
	}

	stream, err := cmd.Flags().GetBool("stream")
	if err != nil {
		return opts, err
	}
	if stream {
		cfg.Mode = workflow.ModeStreaming
	}

	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return opts, err
	}
	if concurrency < 1 {
		return opts, fmt.Errorf("%w: %d", config.ErrInvalidConcurrency, concurrency)
	}

	if cmd.Flags().Changed("skip-malformed") {
		if cfg.SkipMalformed, err = cmd.Flags().GetBool("skip-malformed"); err != nil {
			return opts, err
		}
	}
	if cmd.Flags().Changed("min-score") {
		if cfg.MinScore, err = cmd.Flags().GetFloat64("min-score"); err != nil {
			return opts, err
		}
	}

	opts.pipeline = pipeline.Options{
		Concurrency:   concurrency,
		Mode:          cfg.Mode,
		SkipMalformed: cfg.SkipMalformed,
		MinScore:      cfg.MinScore,
		Overwrite:     opts.overwrite,
	}
	return opts, nil
}

// runCheck checks the documents and prints one result per document.
func runCheck(ctx context.Context, out io.Writer, cfg *config.Config, opts checkOptions, inputs []string, logger *slog.Logger) error {
	var db *database.HistoryDB
	if cfg.HistoryEnabled {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		logger.Debug("history database opened", "path", db.Path())
	}

	var resultFile *os.File
	if opts.saveJSON != "" {
		var err error
		if resultFile, err = createResultFile(opts.saveJSON, opts.overwrite); err != nil {
			return err
		}
		defer resultFile.Close()
	}

	jobs := make([]pipeline.Job, len(inputs))
	for i, in := range inputs {
		jobs[i] = pipeline.Job{Input: in, Output: opts.output}
	}

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline { return pipeline.NewStandard(opts.pipeline) },
		pipeline.WithConcurrency(opts.batch),
		pipeline.WithBatchLogger(logger),
	)
	reports, batchErr := bp.ProcessBatch(ctx, jobs)

	var w report.Writer
	if opts.json {
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	} else {
		w = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
	if resultFile != nil {
		w = report.NewMultiWriter(w, report.NewJSONWriter(resultFile))
	}

	failed := 0
	for _, r := range reports {
		if r == nil {
			continue
		}
		if r.Failed() {
			failed++
		}
		if db != nil {
			noteEarlierRuns(ctx, out, db, r, opts.json)
			if err := db.SaveRun(ctx, r); err != nil {
				logger.Error("failed to save run history", "run_id", r.ID, "error", err)
			}
		}
		if _, err := w.Write(r); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}

	if batchErr != nil {
		return fmt.Errorf("check interrupted: %w", batchErr)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(reports))
	}
	return nil
}

// createResultFile opens the --save-json file. An existing file is only
// replaced with --force, the same rule as for reports.
func createResultFile(path string, overwrite bool) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%s already exists (use --force to replace it)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create result file: %w", err)
	}
	return f, nil
}

// noteEarlierRuns tells the user when the same document content was
// checked before. JSON output stays machine readable, so it is skipped there.
func noteEarlierRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, r *model.CheckReport, jsonOutput bool) {
	if jsonOutput || r.Digest == "" {
		return
	}
	runs, err := db.FindByDigest(ctx, r.Digest)
	if err != nil || len(runs) == 0 {
		return
	}
	prev := runs[0]
	fmt.Fprintf(out, "Note: %s has the same content as %s, checked %s (run %s)\n",
		r.InputPath, prev.InputPath, prev.StartedAt.Local().Format("2006-01-02 15:04"), prev.ID)
}
