package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/dupcheck/internal/config"
	"github.com/nao1215/dupcheck/internal/log"
	"github.com/nao1215/dupcheck/internal/metrics"
	"github.com/nao1215/dupcheck/internal/workflow"
)

// NewRootCmd creates the root command for dupcheck.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dupcheck",
		Short: "Sentence-level duplicate content checker",
		Long: `dupcheck finds sentences of a document that already exist in a knowledge base.

The document is split into sentences on "，" and "。", every sentence is sent
to a Dify workflow, and the matches the workflow returns are written to a
markdown report.

The workflow connection is read from the environment or a .env file:
  DIFY_BASE_URL  workflow API root (default https://api.dify.ai)
  DIFY_API_KEY   workflow application key
  DIFY_USER      user name sent with every request`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: ./.dupcheck, ~/.config/dupcheck/config.yaml, then ~/.dupcheck)")
	cmd.PersistentFlags().String("env-file", config.DefaultEnvFile,
		"dotenv file with the workflow credentials (ignored if missing)")

	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig builds the configuration from files, environment, and the
// global flags, then validates it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if getVerboseFlag(cmd) {
		cfg.Verbose = true
	}
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// newLogger creates the sanitizing logger for one-shot commands, which only
// report warnings unless --verbose is set.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose, log.ParseFormat(cfg.LogFormat))
}

// newServerLogger creates the sanitizing logger for serve, which also logs
// every request at Info.
func newServerLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return log.New(cmd.ErrOrStderr(), log.Options{
		Level:  log.LevelFor(cfg.Verbose, slog.LevelInfo),
		Format: log.ParseFormat(cfg.LogFormat),
	})
}

// newWorkflowClient creates the workflow client. m may be nil.
func newWorkflowClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*workflow.Client, error) {
	opts := []workflow.Option{workflow.WithLogger(logger)}
	if m != nil {
		opts = append(opts, workflow.WithRecorder(m))
	}

	client, err := workflow.NewClient(cfg.WorkflowConfig(), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w (set it in .env, the environment, or the configuration file)", err)
	}
	return client, nil
}
