package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
)

// psutilSource reads host counters through gopsutil.
type psutilSource struct{}

// NewHostSource returns the HostSource backed by the running OS.
func NewHostSource() HostSource {
	return psutilSource{}
}

func (psutilSource) CPUPercent(ctx context.Context, window time.Duration) (float64, error) {
	pcts, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return 0, fmt.Errorf("read cpu percent: %w", err)
	}
	if len(pcts) == 0 {
		return 0, fmt.Errorf("read cpu percent: no data")
	}
	return pcts[0], nil
}

func (psutilSource) MemoryPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("read virtual memory: %w", err)
	}
	return vm.UsedPercent, nil
}

func (psutilSource) Pids(ctx context.Context) ([]int32, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	return pids, nil
}

func (psutilSource) Process(ctx context.Context, pid int32) (ProcessInfo, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return ProcessInfo{}, err
	}
	name, err := proc.NameWithContext(ctx)
	if err != nil {
		return ProcessInfo{}, fmt.Errorf("process %d name: %w", pid, err)
	}
	pct, err := proc.CPUPercentWithContext(ctx)
	if err != nil {
		return ProcessInfo{}, fmt.Errorf("process %d cpu: %w", pid, err)
	}
	return ProcessInfo{PID: pid, Name: name, CPUPercent: pct}, nil
}
