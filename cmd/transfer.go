package cmd

import (
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"sysmon/collector"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		limit int
		since string
		last  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored samples as JSON lines, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseTimeFilter(since, last, a.now())
			if err != nil {
				return err
			}
			series, err := selectSeries(cmd, a.store, from, limit)
			if err != nil {
				return err
			}

			order := make([]int, series.Len())
			for i := range order {
				order[i] = i
			}
			if from.IsZero() {
				// QueryLast is newest first.
				slices.Reverse(order)
			}

			enc := json.NewEncoder(a.out)
			for _, i := range order {
				s, err := series.Sample(i)
				if err != nil {
					return err
				}
				if err := enc.Encode(s); err != nil {
					return fmt.Errorf("encode sample: %w", err)
				}
			}
			a.log.Debugw("samples exported", "samples", len(order))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultReportLimit, "Number of most recent samples to export")
	cmd.Flags().StringVar(&since, "since", "", "Export samples at or after this ISO-8601 datetime")
	cmd.Flags().StringVar(&last, "last", "", "Use a pre-defined time filter: hour or day")
	cmd.MarkFlagsMutuallyExclusive("since", "last")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Insert samples from a JSON lines file (\"-\" for stdin)",
		Long: `Reads one JSON sample per line, as written by export. Every line is validated
before the first insert, so a file with an invalid sample imports nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			in, err := openInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, in.Close()) }()

			lines, err := readLines(in)
			if err != nil {
				return err
			}

			samples := make([]collector.Sample, 0, len(lines))
			for _, l := range lines {
				s, err := collector.DecodeSample(l.text)
				if err != nil {
					return fmt.Errorf("line %d: %w", l.number, err)
				}
				samples = append(samples, s)
			}

			for _, s := range samples {
				if _, err := a.store.Insert(cmd.Context(), s); err != nil {
					return err
				}
			}
			fmt.Fprintf(a.out, "Imported %d samples into %s\n", len(samples), a.store.Path())
			return nil
		},
	}
}
