package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sysmon/logger"
)

// Sink persists samples. *storage.Store satisfies it.
type Sink interface {
	Insert(ctx context.Context, s Sample) (int64, error)
}

// RunOptions controls the collection loop.
type RunOptions struct {
	Interval time.Duration // pause after each stored sample
	Duration time.Duration // total run time; no sample starts after it elapses

	// OnSample, when set, is called after every stored sample.
	OnSample func(id int64, s Sample)
}

// Run samples c into sink until opts.Duration has elapsed. The loop is
// sequential: collect, insert, sleep. The first error stops the run; samples
// stored before it are kept. Run returns the number of samples stored.
//
// log is attached to ctx for c and sink; a nil log falls back to the logger
// already carried by ctx.
func Run(ctx context.Context, c Collector, sink Sink, opts RunOptions, log *zap.Logger) (int, error) {
	if log == nil {
		log = logger.FromContext(ctx, nil)
	}
	ctx = logger.WithContext(ctx, log)
	start := time.Now()
	stored := 0

	for time.Since(start) < opts.Duration {
		s, err := c.Collect(ctx)
		if err != nil {
			return stored, fmt.Errorf("collect sample: %w", err)
		}
		id, err := sink.Insert(ctx, s)
		if err != nil {
			return stored, fmt.Errorf("store sample: %w", err)
		}
		stored++
		log.Info("sample stored",
			zap.Int64("id", id),
			zap.String("timestamp", FormatTimestamp(s.Timestamp)),
			zap.Float64("cpu", s.CPU),
			zap.Float64("ram", s.RAM),
			zap.Int("processes", len(s.TopProcesses)),
		)
		if opts.OnSample != nil {
			opts.OnSample(id, s)
		}

		if err := sleep(ctx, opts.Interval); err != nil {
			return stored, err
		}
	}
	log.Info("collection finished", zap.Int("samples", stored), zap.Duration("elapsed", time.Since(start)))
	return stored, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
