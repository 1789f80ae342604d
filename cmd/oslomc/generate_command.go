package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"oslomc/internal/config"
	"oslomc/internal/ensemble"
	"oslomc/internal/firstgen"
	"oslomc/internal/perturb"
	"oslomc/internal/runstore"
	"oslomc/internal/spectrum"
	"oslomc/internal/unfold"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		rawPath      string
		responsePath string
		name         string
		number       int
		method       string
		workers      int
		seed         uint64
		regenerate   bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a perturbed ensemble and its uncertainty estimates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}

			if number == 0 {
				number = cfg.Ensemble.Number
			}
			if method == "" {
				method = cfg.Ensemble.Method
			}
			if workers == 0 {
				workers = cfg.Ensemble.Workers
			}
			if seed == 0 {
				seed = cfg.Ensemble.Seed
			}
			model, err := perturb.ParseModel(method)
			if err != nil {
				return err
			}

			raw, err := spectrum.Load(rawPath)
			if err != nil {
				return fmt.Errorf("load raw spectrum: %w", err)
			}
			response, err := spectrum.Load(responsePath)
			if err != nil {
				return fmt.Errorf("load response matrix: %w", err)
			}

			unfolder, err := unfold.New(response,
				unfold.WithIterations(cfg.Unfolding.Iterations),
				unfold.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			firstGen := firstgen.New(
				firstgen.WithRounds(cfg.FirstGeneration.Rounds),
				firstgen.WithLogger(logger),
			)

			if name == "" {
				name = strings.TrimSuffix(filepath.Base(rawPath), filepath.Ext(rawPath))
			}
			storeDir := filepath.Join(cfg.Paths.DataDir, name)

			opts := []ensemble.Option{
				ensemble.WithWorkers(workers),
				ensemble.WithLogger(logger),
			}
			if seed != 0 {
				opts = append(opts, ensemble.WithSeed(seed))
			}
			ens, err := ensemble.New(raw, storeDir, opts...)
			if err != nil {
				return err
			}
			ens.Unfolder = unfolder
			ens.FirstGeneration = firstGen

			started := time.Now()
			if err := ens.Generate(cmd.Context(), number, model, regenerate); err != nil {
				return err
			}
			elapsed := time.Since(started)

			if err := recordRun(cmd, ctx, cfg, ens, runstore.Run{
				StoreDir:   storeDir,
				Draws:      number,
				Method:     model.String(),
				Workers:    workers,
				Regenerate: regenerate,
				Seed:       seed,
				Duration:   elapsed,
			}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generated %d draws (%s) in %s\n", number, model, elapsed.Round(time.Millisecond))
			fmt.Fprintln(out, renderSummaryTable(ens))
			fmt.Fprintf(out, "Artifacts: %s\n", storeDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&rawPath, "raw", "", "Path to the raw spectrum file")
	cmd.Flags().StringVar(&responsePath, "response", "", "Path to the detector response matrix")
	cmd.Flags().StringVar(&name, "name", "", "Ensemble name (defaults to the raw file's base name)")
	cmd.Flags().IntVarP(&number, "number", "n", 0, "Number of draws (defaults to config)")
	cmd.Flags().StringVarP(&method, "method", "m", "", "Perturbation method: gaussian or poisson (defaults to config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent draws (defaults to config)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed; 0 picks a fresh seed")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "Recompute all draws instead of reusing cached artifacts")
	_ = cmd.MarkFlagRequired("raw")
	_ = cmd.MarkFlagRequired("response")

	return cmd
}

func recordRun(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, ens *ensemble.Ensemble, run runstore.Run) error {
	store, err := runstore.Open(ctx.runDBPath(cfg))
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()

	run.MeanStdRaw = meanValue(ens.StdRaw())
	run.MeanStdUnfolded = meanValue(ens.StdUnfolded())
	run.MeanStdFirstGen = meanValue(ens.StdFirstGen())
	if err := store.Record(cmd.Context(), &run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func renderSummaryTable(ens *ensemble.Ensemble) string {
	rows := [][]string{
		summaryRow("raw", ens.StdRaw()),
		summaryRow("unfolded", ens.StdUnfolded()),
		summaryRow("firstgen", ens.StdFirstGen()),
	}
	return renderTable(
		[]string{"Stage", "Shape", "Mean std", "Max std"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}

func summaryRow(stage string, std *spectrum.Matrix) []string {
	r, c := std.Shape()
	return []string{
		stage,
		fmt.Sprintf("%dx%d", r, c),
		fmt.Sprintf("%.4f", meanValue(std)),
		fmt.Sprintf("%.4f", std.Max()),
	}
}

func meanValue(m *spectrum.Matrix) float64 {
	rows, cols := m.Shape()
	if rows == 0 || cols == 0 {
		return 0
	}
	return m.Total() / float64(rows*cols)
}
