package perturb_test

import (
	"errors"
	"testing"

	"oslomc/internal/perturb"
	"oslomc/internal/spectrum"
	"oslomc/internal/testsupport"
)

func TestParseModel(t *testing.T) {
	cases := []struct {
		name    string
		want    perturb.Model
		wantErr bool
	}{
		{name: "gaussian", want: perturb.ModelGaussian},
		{name: "poisson", want: perturb.ModelPoisson},
		{name: " Poisson ", want: perturb.ModelPoisson},
		{name: "GAUSSIAN", want: perturb.ModelGaussian},
		{name: "uniform", wantErr: true},
		{name: "", wantErr: true},
	}
	for _, tc := range cases {
		model, err := perturb.ParseModel(tc.name)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseModel(%q): expected error", tc.name)
			}
			var unsupported *perturb.UnsupportedMethodError
			if !errors.As(err, &unsupported) {
				t.Fatalf("ParseModel(%q): wrong error type %T", tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseModel(%q): %v", tc.name, err)
		}
		if model != tc.want {
			t.Fatalf("ParseModel(%q) = %v, want %v", tc.name, model, tc.want)
		}
	}
}

func TestDrawPreservesShapeAndNonNegativity(t *testing.T) {
	ref := testsupport.UniformMatrix(t, 4, 6, 250)

	for _, model := range []perturb.Model{perturb.ModelGaussian, perturb.ModelPoisson} {
		for step := 0; step < 20; step++ {
			draw, err := perturb.Draw(ref, model, 7, step)
			if err != nil {
				t.Fatalf("%v draw %d: %v", model, step, err)
			}
			if !draw.SameShape(ref) {
				t.Fatalf("%v draw %d changed shape", model, step)
			}
			if draw.State != spectrum.StateRaw {
				t.Fatalf("%v draw %d state = %q", model, step, draw.State)
			}
			for i, row := range draw.Values {
				for j, v := range row {
					if v < 0 {
						t.Fatalf("%v draw %d cell (%d,%d) negative: %v", model, step, i, j, v)
					}
				}
			}
		}
	}
}

func TestDrawKeepsZeroCellsZero(t *testing.T) {
	values := [][]float64{
		{0, 100, 0},
		{50, 0, 25},
	}
	ref, err := spectrum.New(values, testsupport.Axis(3), testsupport.Axis(2), spectrum.StateRaw)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, model := range []perturb.Model{perturb.ModelGaussian, perturb.ModelPoisson} {
		for step := 0; step < 50; step++ {
			draw, err := perturb.Draw(ref, model, 3, step)
			if err != nil {
				t.Fatalf("%v draw %d: %v", model, step, err)
			}
			for i, row := range values {
				for j, v := range row {
					if v == 0 && draw.Values[i][j] != 0 {
						t.Fatalf("%v draw %d perturbed empty cell (%d,%d) to %v", model, step, i, j, draw.Values[i][j])
					}
				}
			}
		}
	}
}

func TestDrawIsDeterministicPerSeedAndStep(t *testing.T) {
	ref := testsupport.UniformMatrix(t, 3, 3, 100)

	first, err := perturb.Draw(ref, perturb.ModelPoisson, 42, 5)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	second, err := perturb.Draw(ref, perturb.ModelPoisson, 42, 5)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	for i := range first.Values {
		for j := range first.Values[i] {
			if first.Values[i][j] != second.Values[i][j] {
				t.Fatalf("same (seed, step) disagreed at (%d,%d)", i, j)
			}
		}
	}

	other, err := perturb.Draw(ref, perturb.ModelPoisson, 42, 6)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	same := true
	for i := range first.Values {
		for j := range first.Values[i] {
			if first.Values[i][j] != other.Values[i][j] {
				same = false
			}
		}
	}
	if same {
		t.Fatal("different steps produced identical draws")
	}
}

func TestDrawRejectsInvalidModel(t *testing.T) {
	ref := testsupport.UniformMatrix(t, 2, 2, 10)
	if _, err := perturb.Draw(ref, perturb.Model(99), 1, 0); err == nil {
		t.Fatal("expected error for invalid model")
	}
}
