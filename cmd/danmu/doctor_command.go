package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"danmu/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories and provider endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, nil)
			failed := preflight.Failed(results)

			if ctx.jsonMode() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(results))
				for _, result := range results {
					status := "ok"
					if !result.Passed {
						status = "FAIL"
					}
					rows = append(rows, []string{result.Name, status, result.Detail})
				}
				fmt.Fprintln(out, renderRows(out, []string{"Check", "Status", "Detail"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft}))
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
}
