package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sysmon/report"
	"sysmon/storage"
)

func newShowCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List recent samples with their top processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := a.store.QueryLast(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return report.WriteListing(a.out, series, a.now())
		},
	}

	cmd.Flags().IntVar(&limit, "limit", storage.DefaultLimit, "Number of samples to list, newest first")
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored sample and recreate an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Destroy(); err != nil {
				return err
			}
			if err := a.store.Initialize(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Store reset: %s\n", a.store.Path())
			return nil
		},
	}
}
