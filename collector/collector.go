package collector

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"sysmon/logger"
)

const (
	DefaultTopN         = 5
	DefaultSampleWindow = time.Second
	DefaultWorkers      = 4
)

// Collector is the public contract any sample source must satisfy.
type Collector interface {
	// Collect takes one snapshot of the host. It blocks for at least the
	// CPU sampling window.
	Collect(ctx context.Context) (Sample, error)
}

// HostSource exposes the OS counters a SystemCollector reads. It is an
// interface so tests can replace the host.
type HostSource interface {
	// CPUPercent measures system-wide CPU usage over window.
	CPUPercent(ctx context.Context, window time.Duration) (float64, error)
	MemoryPercent(ctx context.Context) (float64, error)
	Pids(ctx context.Context) ([]int32, error)
	Process(ctx context.Context, pid int32) (ProcessInfo, error)
}

// SystemCollector samples the local host.
type SystemCollector struct {
	src     HostSource
	log     *zap.Logger
	topN    int
	window  time.Duration
	workers int
	now     func() time.Time
}

type Option func(*SystemCollector)

func WithTopN(n int) Option {
	return func(c *SystemCollector) {
		if n > 0 {
			c.topN = n
		}
	}
}

func WithSampleWindow(d time.Duration) Option {
	return func(c *SystemCollector) {
		if d >= 0 {
			c.window = d
		}
	}
}

func WithWorkers(n int) Option {
	return func(c *SystemCollector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithHostSource replaces the gopsutil-backed source.
func WithHostSource(src HostSource) Option {
	return func(c *SystemCollector) {
		c.src = src
	}
}

// NewSystemCollector returns a ready-to-use collector reading the local host.
func NewSystemCollector(log *zap.Logger, opts ...Option) *SystemCollector {
	if log == nil {
		log = logger.Nop().Logger
	}
	c := &SystemCollector{
		src:     NewHostSource(),
		log:     log,
		topN:    DefaultTopN,
		window:  DefaultSampleWindow,
		workers: DefaultWorkers,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect implements the Collector interface.
func (c *SystemCollector) Collect(ctx context.Context) (Sample, error) {
	ts := c.now().UTC().Truncate(time.Microsecond)

	cpu, err := c.src.CPUPercent(ctx, c.window)
	if err != nil {
		return Sample{}, fmt.Errorf("sample cpu: %w", err)
	}
	ram, err := c.src.MemoryPercent(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("sample memory: %w", err)
	}
	procs, err := c.topProcesses(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("sample processes: %w", err)
	}

	return Sample{
		Timestamp:    ts,
		CPU:          cpu,
		RAM:          ram,
		TopProcesses: procs,
	}, nil
}

func (c *SystemCollector) topProcesses(ctx context.Context) ([]ProcessInfo, error) {
	pids, err := c.src.Pids(ctx)
	if err != nil {
		return nil, err
	}
	infos, skipped := scanProcesses(ctx, c.src, pids, c.workers)
	if skipped > 0 {
		// processes exit or deny access between listing and inspection
		logger.FromContext(ctx, c.log).Debug("processes skipped", zap.Int("skipped", skipped), zap.Int("total", len(pids)))
	}
	return TopN(infos, c.topN), nil
}

// TopN drops the system idle pseudo-processes and returns the n highest CPU
// consumers, highest first. Ties are ordered by pid.
func TopN(infos []ProcessInfo, n int) []ProcessInfo {
	out := make([]ProcessInfo, 0, len(infos))
	for _, p := range infos {
		if p.PID == 0 || strings.Contains(strings.ToLower(p.Name), "idle") {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b ProcessInfo) int {
		return cmp.Or(
			cmp.Compare(b.CPUPercent, a.CPUPercent),
			cmp.Compare(a.PID, b.PID),
		)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
