package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sysmon/collector"
	"sysmon/config"
	"sysmon/logger"
	"sysmon/storage"
)

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	store *storage.Store
	out   io.Writer

	// newCollector builds the sampler for `collect`.
	newCollector func(cfg *config.Config, log *zap.Logger, topN int) collector.Collector
	now          func() time.Time
}

func systemCollector(cfg *config.Config, log *zap.Logger, topN int) collector.Collector {
	return collector.NewSystemCollector(log,
		collector.WithTopN(topN),
		collector.WithSampleWindow(cfg.SampleWindow),
		collector.WithWorkers(cfg.Workers),
	)
}

// NewRootCmd builds the sysmon command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{newCollector: systemCollector, now: time.Now})
}

func newRootCmd(a *app) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "sysmon",
		Short:         "System monitor: collect and report host CPU and memory usage",
		Long:          `sysmon samples CPU, memory and the busiest processes into a SQLite file and renders what it stored as charts or listings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			a.cfg = cfg
			a.log = log
			a.store = storage.New(cfg.DBPath, log.Logger)
			a.out = cmd.OutOrStdout()
			log.Debugw("config loaded", "db", cfg.DBPath, "report_dir", cfg.ReportDir)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				logger.Flush(a.log.Logger)
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./configs/config.yaml)")
	root.PersistentFlags().String("db", "", "Path to the SQLite metrics database (default ./data/metrics.db)")
	root.PersistentFlags().String("log-level", "", "Log level. One of debug, info, warn, error.")
	root.PersistentFlags().String("report-dir", "", "Directory for saved reports (default ./data)")

	root.AddCommand(
		newCollectCmd(a),
		newReportCmd(a),
		newShowCmd(a),
		newResetCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}
