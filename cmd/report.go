package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"sysmon/collector"
	"sysmon/report"
	"sysmon/storage"
)

const defaultReportLimit = 100

func newReportCmd(a *app) *cobra.Command {
	var (
		limit  int
		since  string
		last   string
		save   bool
		output string
		height int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate performance report",
		Long: `Charts CPU and RAM usage. Without a time filter the last --limit samples are used.
With --save the chart is written as a PNG into the report directory, otherwise it is drawn in the terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseTimeFilter(since, last, a.now())
			if err != nil {
				return err
			}
			series, err := selectSeries(cmd, a.store, from, limit)
			if err != nil {
				return err
			}
			a.log.Debugw("report data selected", "samples", series.Len(), "since", from)

			if save {
				path := output
				if !filepath.IsAbs(path) {
					path = filepath.Join(a.cfg.ReportDir, path)
				}
				err = report.SavePNG(series, path)
				if err == nil {
					fmt.Fprintf(a.out, "[✓] Report saved as %s\n", path)
				}
			} else {
				err = report.Render(a.out, series, height)
			}
			if errors.Is(err, report.ErrNoData) {
				fmt.Fprintln(a.out, "No samples to report.")
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultReportLimit, "Number of data points to include")
	cmd.Flags().StringVar(&since, "since", "", "Start datetime (ISO format: YYYY-MM-DDTHH:MM)")
	cmd.Flags().StringVar(&last, "last", "", "Use a pre-defined time filter: hour or day")
	cmd.Flags().BoolVar(&save, "save", false, "Save report as PNG instead of showing it")
	cmd.Flags().StringVar(&output, "output", "report.png", "File name of the saved report, relative to the report directory")
	cmd.Flags().IntVar(&height, "height", 15, "Terminal chart height in rows")
	cmd.MarkFlagsMutuallyExclusive("since", "last")
	return cmd
}

// parseTimeFilter turns --since or --last into a lower bound. It returns the
// zero time when neither is set.
func parseTimeFilter(since, last string, now time.Time) (time.Time, error) {
	if since != "" {
		t, err := collector.ParseTimestamp(since)
		if err != nil {
			return time.Time{}, fmt.Errorf("--since: %w", err)
		}
		return t, nil
	}
	switch last {
	case "":
		return time.Time{}, nil
	case "hour":
		return now.Add(-time.Hour), nil
	case "day":
		return now.Add(-24 * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("--last must be hour or day, got %q", last)
	}
}

// selectSeries queries since from when it is set, otherwise the last limit
// samples.
func selectSeries(cmd *cobra.Command, store *storage.Store, from time.Time, limit int) (*storage.Series, error) {
	if !from.IsZero() {
		return store.QuerySince(cmd.Context(), from)
	}
	return store.QueryLast(cmd.Context(), limit)
}
