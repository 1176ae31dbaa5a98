package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"sysmon/collector"
	"sysmon/storage"
)

// WriteListing prints every sample of series in order with its top
// processes. Ages are relative to now.
func WriteListing(w io.Writer, series *storage.Series, now time.Time) error {
	if series.Len() == 0 {
		_, err := fmt.Fprintln(w, "No samples recorded.")
		return err
	}
	for i := 0; i < series.Len(); i++ {
		ts := series.Timestamps[i]
		procs, err := collector.DecodeProcesses(series.TopProcesses[i])
		if err != nil {
			return fmt.Errorf("sample %s: %w", collector.FormatTimestamp(ts), err)
		}
		if _, err := fmt.Fprintf(w, "[%s] (%s) CPU: %.1f%% | RAM: %.1f%%\n",
			ts.Local().Format(time.RFC3339),
			humanize.RelTime(ts, now, "ago", "from now"),
			series.CPU[i], series.RAM[i]); err != nil {
			return err
		}
		if len(procs) == 0 {
			if _, err := fmt.Fprintln(w, "    (no processes)"); err != nil {
				return err
			}
			continue
		}
		for _, p := range procs {
			if _, err := fmt.Fprintf(w, "    %-8d %-32s %6.1f%%\n", p.PID, p.Name, p.CPUPercent); err != nil {
				return err
			}
		}
	}
	return nil
}
