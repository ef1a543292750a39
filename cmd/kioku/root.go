package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/phrazzld/kioku-api/internal/config"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
	"github.com/phrazzld/kioku-api/internal/redact"
	"github.com/spf13/cobra"
)

// cli carries state shared by every subcommand.
type cli struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	out        io.Writer
}

func newRootCommand() *cobra.Command {
	c := &cli{out: os.Stdout}

	root := &cobra.Command{
		Use:           "kioku",
		Short:         "Schedule review candidates and assemble exams",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			return c.init()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a config file (default: ./config.yaml if present)")

	root.AddCommand(
		newMigrateCommand(c),
		newItemCommand(c),
		newCandidatesCommand(c),
		newExamCommand(c),
	)
	return root
}

// init loads configuration and installs the process logger.
func (c *cli) init() error {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFrom(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	c.cfg = cfg
	c.logger = log
	log.Debug("configuration loaded",
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("candidate_backend", cfg.Scheduler.CandidateBackend),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.String("timezone", cfg.Scheduler.Timezone))
	return nil
}

// withApp opens the application for the duration of fn.
func (c *cli) withApp(ctx context.Context, fn func(ctx context.Context, app *application) error) error {
	app, err := newApplication(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			c.logger.Warn("failed to close application", slog.String("error", redact.Error(cerr)))
		}
	}()

	ctx = logger.WithLogger(ctx, c.logger)
	return fn(ctx, app)
}

// print writes v as indented JSON.
func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
