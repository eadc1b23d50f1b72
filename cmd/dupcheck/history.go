package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nao1215/dupcheck/internal/database"
	"github.com/nao1215/dupcheck/internal/model"
	"github.com/nao1215/dupcheck/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List or show stored runs",
		Long: `History lists runs stored in the history database, newest first.

Runs are stored when history.enabled is set in the configuration file.
Give a run ID to print that run in full.

Examples:
  # List the last 20 runs
  dupcheck history

  # List every run
  dupcheck history --limit 0

  # Show one run as markdown
  dupcheck history 6f1c... --markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", 20,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().BoolP("json", "j", false,
		"Print the run as JSON")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the run as a markdown report")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown are mutually exclusive")
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			return fmt.Errorf("no history yet: %w (enable history.enabled in the configuration file)", err)
		}
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		r, err := db.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		return showRun(out, r, jsonOutput, markdownOutput)
	}
	return listRuns(ctx, out, db, limit)
}

func showRun(out io.Writer, r *model.CheckReport, jsonOutput, markdownOutput bool) error {
	var w report.Writer
	switch {
	case jsonOutput:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case markdownOutput:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(true))
	}
	_, err := w.Write(r)
	return err
}

func listRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs stored.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tINPUT\tSENTENCES\tMATCHED\tTOP SCORE\tSTATUS")
	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.2f\t%s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.InputPath,
			run.SentenceCount,
			run.MatchedSentences,
			run.TopScore,
			status,
		)
	}
	return tw.Flush()
}
