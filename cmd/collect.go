package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sysmon/collector"
	"sysmon/logger"
)

func newCollectCmd(a *app) *cobra.Command {
	var (
		interval float64
		duration float64
		topN     int
		reset    bool
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect system metrics",
		Long:  `Samples CPU, memory and the top processes every --interval seconds for --duration seconds and stores each sample.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			opts := collector.RunOptions{
				Interval: a.cfg.Interval,
				Duration: a.cfg.Duration,
			}
			if cmd.Flags().Changed("interval") {
				opts.Interval = seconds(interval)
			}
			if cmd.Flags().Changed("duration") {
				opts.Duration = seconds(duration)
			}
			if opts.Interval < 0 || opts.Duration < 0 {
				return fmt.Errorf("interval and duration must not be negative")
			}
			n := a.cfg.TopN
			if cmd.Flags().Changed("top") {
				n = topN
			}

			runLog := logger.WithRunID(a.log.Logger, uuid.NewString())
			ctx = logger.WithContext(ctx, runLog)

			if reset {
				if err := a.store.Destroy(); err != nil {
					return err
				}
			}
			if err := a.store.Initialize(ctx); err != nil {
				return err
			}

			opts.OnSample = func(id int64, s collector.Sample) {
				fmt.Fprintf(a.out, "[%s] CPU: %.1f%% | RAM: %.1f%%\n",
					collector.FormatTimestamp(s.Timestamp), s.CPU, s.RAM)
			}

			fmt.Fprintf(a.out, "Collecting metrics every %s for %s...\n", opts.Interval, opts.Duration)
			runLog.Info("collection started",
				zap.String("db", a.store.Path()),
				zap.Duration("interval", opts.Interval),
				zap.Duration("duration", opts.Duration),
				zap.Int("top", n),
			)

			c := a.newCollector(a.cfg, runLog, n)
			stored, err := collector.Run(ctx, c, a.store, opts, runLog)
			if errors.Is(err, context.Canceled) {
				runLog.Info("collection interrupted", zap.Int("samples", stored))
				return nil
			}
			return err
		},
	}

	cmd.Flags().Float64Var(&interval, "interval", 5, "Interval between collections (in seconds)")
	cmd.Flags().Float64Var(&duration, "duration", 60, "Total duration of the collection (in seconds)")
	cmd.Flags().IntVar(&topN, "top", collector.DefaultTopN, "Number of top CPU processes kept per sample")
	cmd.Flags().BoolVar(&reset, "reset", false, "Delete the existing database before collecting")
	return cmd
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
