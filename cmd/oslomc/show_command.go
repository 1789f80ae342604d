package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"oslomc/internal/spectrum"
)

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <spectrum-file>",
		Short: "Summarize a persisted spectrum file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matrix, err := spectrum.Load(args[0])
			if err != nil {
				return err
			}
			rows, cols := matrix.Shape()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "State:  %s\n", matrix.State)
			fmt.Fprintf(out, "Shape:  %d Ex bins x %d Eg bins\n", rows, cols)
			fmt.Fprintf(out, "Ex:     %.1f - %.1f\n", matrix.Ex[0], matrix.Ex[rows-1])
			fmt.Fprintf(out, "Eg:     %.1f - %.1f\n", matrix.Eg[0], matrix.Eg[cols-1])
			fmt.Fprintf(out, "Total:  %.4f\n", matrix.Total())
			fmt.Fprintf(out, "Max:    %.4f\n", matrix.Max())
			return nil
		},
	}
}
