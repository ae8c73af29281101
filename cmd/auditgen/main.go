// Package main provides auditgen, the command line front end of the report
// generators.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pramodksahoo/audit-reporter/pkg/catalog"
	"github.com/pramodksahoo/audit-reporter/pkg/config"
	"github.com/pramodksahoo/audit-reporter/pkg/evidence"
	"github.com/pramodksahoo/audit-reporter/pkg/logging"
	"github.com/pramodksahoo/audit-reporter/pkg/report"
)

// app carries the state shared by every subcommand
type app struct {
	verbose bool
	workDir string

	config    config.Config
	logger    *zap.Logger
	generator *report.Generator
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "auditgen",
		Short: "Generate compliance audit workbooks and annexure documents",
		Long: `auditgen builds the deliverables of a compliance audit offline:

  questionnaire  answered module questionnaire (.xlsx)
  poc            branch workbook with evidence screenshots (.xlsx)
  combine        one workbook from an archive of branch workbooks (.xlsx)
  annexures      gap assessment annexures (.docx or .pdf)

Configuration is read from the environment and AUDIT_CONFIG_FILE.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&a.workDir, "work-dir", "", "Scratch directory (default: system temp)")

	rootCmd.AddCommand(
		newQuestionnaireCmd(a),
		newPOCCmd(a),
		newCombineCmd(a),
		newAnnexuresCmd(a),
		newModulesCmd(a),
		newTokenCmd(a),
	)
	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.workDir != "" {
		cfg.WorkDir = a.workDir
	}
	a.config = cfg

	level := cfg.LogLevel
	if a.verbose {
		level = "debug"
	}
	a.logger, err = logging.New(level, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	registry, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("failed to load question catalogs: %w", err)
	}
	a.generator = report.NewGenerator(registry, report.Options{
		WorkDir: cfg.WorkDir,
		Limits: evidence.ArchiveLimits{
			MaxFiles:     cfg.MaxArchiveFiles,
			MaxFileBytes: int64(cfg.MaxImageMB) * 1024 * 1024,
		},
		Logger: a.logger,
	})
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
