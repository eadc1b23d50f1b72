package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/dupcheck/internal/config"
	"github.com/nao1215/dupcheck/internal/database"
	"github.com/nao1215/dupcheck/internal/metrics"
	"github.com/nao1215/dupcheck/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the duplicate-check HTTP API",
		Long: `Serve starts the HTTP API.

Endpoints:
  POST /api/v1/duplicate-check        multipart "file"; sequential lookups
  POST /api/v1/duplicate-check-async  multipart "file"; parallel lookups
  GET  /api/v1/download-result/{path} download a report
  GET  /healthz                       liveness probe
  GET  /metrics                       Prometheus metrics

Both check endpoints accept an optional output_path query parameter.

Examples:
  # Listen on the default address (0.0.0.0:8000)
  dupcheck serve

  # Listen on localhost with 8 parallel lookups per async upload
  dupcheck serve --addr 127.0.0.1:8080 --concurrency 8`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", config.DefaultAddr,
		"Listen address")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Async uploads processed at the same time")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Parallel lookups per async upload")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newServerLogger(cmd, cfg)
	slog.SetDefault(logger)

	m := metrics.New()
	client, err := newWorkflowClient(cfg, logger, m)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithMetrics(m),
		server.WithWorkers(cfg.Workers),
		server.WithConcurrency(cfg.Concurrency),
		server.WithMode(cfg.Mode),
		server.WithSkipMalformed(cfg.SkipMalformed),
		server.WithMinScore(cfg.MinScore),
		server.WithMaxUploadBytes(cfg.MaxUploadBytes),
		server.WithAllowedDirs(cfg.AllowedDirs...),
		server.WithUploadDir(cfg.UploadDirOrTemp()),
	}

	if cfg.HistoryEnabled {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		opts = append(opts, server.WithHistory(db))
		logger.Info("run history enabled", "path", db.Path())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting dupcheck server",
		"addr", cfg.Addr,
		"workflow", cfg.BaseURL,
		"mode", cfg.Mode,
		"workers", cfg.Workers,
		"concurrency", cfg.Concurrency,
	)
	return server.New(client, opts...).ListenAndServe(ctx, cfg.Addr, cfg.ShutdownTimeout)
}

// applyServeFlags overrides the configuration with flags the user set.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cmd.Flags().Changed("addr") {
		if cfg.Addr, err = cmd.Flags().GetString("addr"); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("workers") {
		if cfg.Workers, err = cmd.Flags().GetInt("workers"); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("concurrency") {
		if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
			return err
		}
	}
	return nil
}
