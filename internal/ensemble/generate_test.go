package ensemble_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"oslomc/internal/cache"
	"oslomc/internal/ensemble"
	"oslomc/internal/perturb"
	"oslomc/internal/spectrum"
	"oslomc/internal/testsupport"
)

func newTestEnsemble(t *testing.T, ref *spectrum.Matrix, dir string, opts ...ensemble.Option) *ensemble.Ensemble {
	t.Helper()
	ens, err := ensemble.New(ref, dir, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ens.Unfolder = testsupport.IdentityUnfolder{}
	ens.FirstGeneration = ensemble.FirstGenerationFunc(testsupport.IdentityFirstGen)
	return ens
}

func matricesEqual(a, b *spectrum.Matrix) bool {
	if !a.SameShape(b) {
		return false
	}
	for i := range a.Values {
		for j := range a.Values[i] {
			if a.Values[i][j] != b.Values[i][j] {
				return false
			}
		}
	}
	return true
}

func TestGenerateProducesSummariesAndArtifacts(t *testing.T) {
	ref := testsupport.UniformMatrix(t, 3, 3, 100)
	dir := filepath.Join(t.TempDir(), "ens")
	ens := newTestEnsemble(t, ref, dir, ensemble.WithSeed(11))

	const draws = 10
	if err := ens.Generate(context.Background(), draws, perturb.ModelPoisson, false); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, std := range []*spectrum.Matrix{ens.StdRaw(), ens.StdUnfolded(), ens.StdFirstGen()} {
		if std == nil {
			t.Fatal("summary missing after Generate")
		}
		if !std.SameShape(ref) {
			t.Fatal("summary shape differs from reference")
		}
		if std.State != spectrum.StateStd {
			t.Fatalf("summary state = %q", std.State)
		}
		for _, row := range std.Values {
			for _, v := range row {
				if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("summary cell not finite and non-negative: %v", v)
				}
			}
		}
	}

	for step := 0; step < draws; step++ {
		for _, stage := range []cache.Stage{cache.StageRaw, cache.StageUnfolded, cache.StageFirstGen} {
			path := filepath.Join(dir, string(stage)+"_"+strconv.Itoa(step)+spectrum.Ext)
			if _, err := os.Stat(path); err != nil {
				t.Fatalf("missing artifact %s: %v", path, err)
			}
		}
	}
	for _, name := range []string{"raw", "unfolded_std", "first_std"} {
		if _, err := os.Stat(filepath.Join(dir, name+spectrum.Ext)); err != nil {
			t.Fatalf("missing summary %s: %v", name, err)
		}
	}

	if got := len(ens.FirstGenEnsemble()); got != draws {
		t.Fatalf("firstgen ensemble has %d draws, want %d", got, draws)
	}
}

func TestGenerateIsIdempotentOverWarmCache(t *testing.T) {
	ref := testsupport.UniformMatrix(t, 3, 4, 80)
	dir := filepath.Join(t.TempDir(), "ens")

	first := newTestEnsemble(t, ref, dir, ensemble.WithSeed(5))
	if err := first.Generate(context.Background(), 8, perturb.ModelGaussian, false); err != nil {
		t.Fatalf("first Generate: %v", err)
	}

	// A different seed must not matter: every artifact comes from the cache.
	second := newTestEnsemble(t, ref, dir, ensemble.WithSeed(999))
	if err := second.Generate(context.Background(), 8, perturb.ModelGaussian, false); err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	if !matricesEqual(first.StdRaw(), second.StdRaw()) {
		t.Fatal("raw summaries differ across cached runs")
	}
	if !matricesEqual(first.StdUnfolded(), second.StdUnfolded()) {
		t.Fatal("unfolded summaries differ across cached runs")
	}
	if !matricesEqual(first.StdFirstGen(), second.StdFirstGen()) {
		t.Fatal("firstgen summaries differ across cached runs")
	}
}

func TestRegenerateVariesValuesButNotShape(t *testing.T) {
	ref := testsupport.UniformMatrix(t, 3, 3, 100)
	dir := filepath.Join(t.TempDir(), "ens")

	first := newTestEnsemble(t, ref, dir, ensemble.WithSeed(1))
	if err := first.Generate(context.Background(), 10, perturb.ModelPoisson, true); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	second := newTestEnsemble(t, ref, dir, ensemble.WithSeed(2))
	if err := second.Generate(context.Background(), 10, perturb.ModelPoisson, true); err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	if !first.StdRaw().SameShape(second.StdRaw()) {
		t.Fatal("regenerated summaries changed shape")
	}
	if matricesEqual(first.StdRaw(), second.StdRaw()) {
		t.Fatal("regenerated summaries are identical; draws were not recomputed")
	}
}

func TestIdentityPipelineYieldsZeroStd(t *testing.T) {
	// Pre-seed every raw artifact with the reference itself so the
	// perturbation stage is effectively the identity.
	ref := testsupport.UniformMatrix(t, 3, 3, 42)
	dir := filepath.Join(t.TempDir(), "ens")
	store, err := cache.Open(dir, cache.TrustExisting(), nil)
	if err != nil {
		t.Fatalf("Open cache: %v", err)
	}
	const draws = 6
	for step := 0; step < draws; step++ {
		if _, err := store.Materialize(cache.StageRaw, step, func() (*spectrum.Matrix, error) {
			return ref.Clone(), nil
		}); err != nil {
			t.Fatalf("seed raw artifact %d: %v", step, err)
		}
	}

	ens := newTestEnsemble(t, ref, dir)
	if err := ens.Generate(context.Background(), draws, perturb.ModelPoisson, false); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, std := range []*spectrum.Matrix{ens.StdRaw(), ens.StdUnfolded(), ens.StdFirstGen()} {
		for _, row := range std.Values {
			for _, v := range row {
				if v != 0 {
					t.Fatalf("identity pipeline produced nonzero std %v", v)
				}
			}
		}
	}
}

func TestPoissonScenarioMatchesSqrtRateFormula(t *testing.T) {
	// 3x3 of 100 counts: the model draws Poisson(sqrt(100)) = Poisson(10),
	// whose standard deviation is sqrt(10). The assertion targets the
	// implemented sqrt-rate formula, not the conventional rate=count model.
	ref := testsupport.UniformMatrix(t, 3, 3, 100)
	ens := newTestEnsemble(t, ref, filepath.Join(t.TempDir(), "ens"), ensemble.WithSeed(7))

	if err := ens.Generate(context.Background(), 50, perturb.ModelPoisson, false); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var sum float64
	cells := 0
	for _, row := range ens.StdRaw().Values {
		for _, v := range row {
			sum += v
			cells++
		}
	}
	mean := sum / float64(cells)
	want := math.Sqrt(math.Sqrt(100))
	if mean < want*0.6 || mean > want*1.4 {
		t.Fatalf("mean raw std %.3f not near sqrt(sqrt(100)) = %.3f", mean, want)
	}
}

func TestSingleDrawProducesZeroStd(t *testing.T) {
	ref := testsupport.UniformMatrix(t, 2, 2, 50)
	ens := newTestEnsemble(t, ref, filepath.Join(t.TempDir(), "ens"), ensemble.WithSeed(3))

	if err := ens.Generate(context.Background(), 1, perturb.ModelGaussian, false); err != nil {
		t.Fatalf("Generate with N=1: %v", err)
	}
	for _, row := range ens.StdRaw().Values {
		for _, v := range row {
			if v != 0 {
				t.Fatalf("single-draw std must be zero, got %v", v)
			}
		}
	}
}

func TestMissingCollaboratorsFailFast(t *testing.T) {
	ref := testsupport.UniformMatrix(t, 2, 2, 10)
	ens, err := ensemble.New(ref, filepath.Join(t.TempDir(), "ens"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = ens.Generate(context.Background(), 2, perturb.ModelPoisson, false)
	if !errors.Is(err, ensemble.ErrMissingCollaborator) {
		t.Fatalf("expected ErrMissingCollaborator, got %v", err)
	}

	ens.Unfolder = testsupport.IdentityUnfolder{}
	err = ens.Generate(context.Background(), 2, perturb.ModelPoisson, false)
	if !errors.Is(err, ensemble.ErrMissingCollaborator) {
		t.Fatalf("expected ErrMissingCollaborator for firstgen, got %v", err)
	}

	if _, statErr := os.Stat(filepath.Join(ens.Dir(), "raw_0"+spectrum.Ext)); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("no artifacts may be written before collaborators are checked")
	}
}

func TestUnsupportedModelFailsBeforeIO(t *testing.T) {
	ref := testsupport.UniformMatrix(t, 2, 2, 10)
	dir := filepath.Join(t.TempDir(), "ens")
	ens := newTestEnsemble(t, ref, dir)

	err := ens.Generate(context.Background(), 2, perturb.Model(42), false)
	var unsupported *perturb.UnsupportedMethodError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedMethodError, got %v", err)
	}
	if _, statErr := os.Stat(dir); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("unsupported method must fail before any I/O")
	}
}

func TestRebinningFirstGenIsSupported(t *testing.T) {
	ref := testsupport.UniformMatrix(t, 4, 4, 60)
	ens := newTestEnsemble(t, ref, filepath.Join(t.TempDir(), "ens"), ensemble.WithSeed(9))
	ens.FirstGeneration = ensemble.FirstGenerationFunc(func(m *spectrum.Matrix) (*spectrum.Matrix, error) {
		return rebinHalf(m)
	})

	if err := ens.Generate(context.Background(), 5, perturb.ModelGaussian, false); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	r, c := ens.StdFirstGen().Shape()
	if r != 2 || c != 2 {
		t.Fatalf("firstgen summary shape = %dx%d, want 2x2", r, c)
	}
	if !ens.StdRaw().SameShape(ref) {
		t.Fatal("raw summary must keep the reference shape")
	}
}

func TestFirstGenShapeDriftFailsFast(t *testing.T) {
	ref := testsupport.UniformMatrix(t, 4, 4, 60)
	dir := filepath.Join(t.TempDir(), "ens")
	ens := newTestEnsemble(t, ref, dir, ensemble.WithSeed(9))

	calls := 0
	ens.FirstGeneration = ensemble.FirstGenerationFunc(func(m *spectrum.Matrix) (*spectrum.Matrix, error) {
		calls++
		if calls > 2 {
			return rebinHalf(m)
		}
		out := m.Clone()
		out.State = spectrum.StateFirstGen
		return out, nil
	})

	err := ens.Generate(context.Background(), 5, perturb.ModelGaussian, false)
	if !errors.Is(err, ensemble.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if ens.StdFirstGen() != nil {
		t.Fatal("failed run must not publish partial summaries")
	}
}

func TestParallelWorkersMatchSequential(t *testing.T) {
	ref := testsupport.UniformMatrix(t, 3, 5, 120)

	sequential := newTestEnsemble(t, ref, filepath.Join(t.TempDir(), "seq"), ensemble.WithSeed(21))
	if err := sequential.Generate(context.Background(), 12, perturb.ModelPoisson, false); err != nil {
		t.Fatalf("sequential Generate: %v", err)
	}

	parallel := newTestEnsemble(t, ref, filepath.Join(t.TempDir(), "par"),
		ensemble.WithSeed(21), ensemble.WithWorkers(4))
	if err := parallel.Generate(context.Background(), 12, perturb.ModelPoisson, false); err != nil {
		t.Fatalf("parallel Generate: %v", err)
	}

	if !matricesEqual(sequential.StdRaw(), parallel.StdRaw()) {
		t.Fatal("parallel draws diverged from sequential draws")
	}
	if !matricesEqual(sequential.StdFirstGen(), parallel.StdFirstGen()) {
		t.Fatal("parallel firstgen summary diverged")
	}
}

// rebinHalf folds 2x2 blocks together, halving both axes.
func rebinHalf(m *spectrum.Matrix) (*spectrum.Matrix, error) {
	rows, cols := m.Shape()
	halfRows, halfCols := rows/2, cols/2
	values := make([][]float64, halfRows)
	eg := make([]float64, halfCols)
	ex := make([]float64, halfRows)
	for i := 0; i < halfRows; i++ {
		values[i] = make([]float64, halfCols)
		ex[i] = m.Ex[2*i]
		for j := 0; j < halfCols; j++ {
			values[i][j] = m.Values[2*i][2*j] + m.Values[2*i][2*j+1] +
				m.Values[2*i+1][2*j] + m.Values[2*i+1][2*j+1]
		}
	}
	for j := 0; j < halfCols; j++ {
		eg[j] = m.Eg[2*j]
	}
	return spectrum.New(values, eg, ex, spectrum.StateFirstGen)
}
