package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rolesync/internal/platform/config"
)

func newReconcileCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair role claims that disagree with profile documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.service.ReconcileAll(cmd.Context(), a.profiles, !dryRun)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d drifted=%d repaired=%d failed=%d\n",
				report.Scanned, report.Drifted, report.Repaired, report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d profiles could not be reconciled", report.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report drift without writing claims")
	return cmd
}
