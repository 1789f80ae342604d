package perturb

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"oslomc/internal/spectrum"
)

// Draw produces one randomized realization of the reference matrix for the
// given draw index. The same (seed, step) pair always yields the same grid,
// so draws can be computed in any order or in parallel.
func Draw(ref *spectrum.Matrix, model Model, seed uint64, step int) (*spectrum.Matrix, error) {
	if !model.Valid() {
		return nil, &UnsupportedMethodError{Name: model.String()}
	}
	src := rand.NewPCG(seed, uint64(step))
	rows, cols := ref.Shape()
	values := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		values[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			values[i][j] = drawCell(ref.Values[i][j], model, src)
		}
	}
	out, err := ref.WithValues(values, spectrum.StateRaw)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func drawCell(value float64, model Model, src rand.Source) float64 {
	// Counts cannot be negative; a zero cell has zero spread under both
	// models and must stay exactly zero in every draw.
	if value <= 0 {
		return 0
	}
	sigma := math.Sqrt(value)
	switch model {
	case ModelGaussian:
		normal := distuv.Normal{Mu: value, Sigma: sigma, Src: src}
		perturbed := normal.Rand()
		if perturbed < 0 {
			return 0
		}
		return perturbed
	case ModelPoisson:
		// Rate is sqrt(count), mirroring the upstream implementation.
		poisson := distuv.Poisson{Lambda: sigma, Src: src}
		return poisson.Rand()
	default:
		return 0
	}
}
