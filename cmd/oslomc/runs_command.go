package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"oslomc/internal/runstore"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List recorded ensemble generation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := runstore.Open(ctx.runDBPath(cfg))
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			runs, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID[:8],
					run.CreatedAt.Local().Format(time.DateTime),
					fmt.Sprintf("%d", run.Draws),
					run.Method,
					fmt.Sprintf("%d", run.Workers),
					run.Duration.Round(time.Millisecond).String(),
					fmt.Sprintf("%.4f", run.MeanStdFirstGen),
					run.StoreDir,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Draws", "Method", "Workers", "Duration", "Firstgen std", "Artifacts"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}
