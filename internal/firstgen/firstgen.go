package firstgen

import (
	"log/slog"
	"math"

	"oslomc/internal/logging"
	"oslomc/internal/spectrum"
)

// Method extracts first-generation spectra by successive subtraction of
// lower-lying rows. The zero value is not usable; construct with New.
type Method struct {
	// Rounds is how many weight-refinement passes to run.
	Rounds int

	logger *slog.Logger
}

// Option configures a Method.
type Option func(*Method)

// WithRounds overrides the number of refinement passes.
func WithRounds(n int) Option {
	return func(m *Method) {
		if n > 0 {
			m.Rounds = n
		}
	}
}

// WithLogger routes method logging.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Method) { m.logger = logger }
}

// New builds a first-generation method with default settings.
func New(opts ...Option) *Method {
	m := &Method{Rounds: 10}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "firstgen")
	return m
}

// Apply runs the subtraction and returns the first-generation matrix on the
// same axes as its input. Negative cells are clamped to zero.
func (m *Method) Apply(unfolded *spectrum.Matrix) (*spectrum.Matrix, error) {
	rows, cols := unfolded.Shape()
	f := unfolded.Values

	totals := make([]float64, rows)
	multiplicity := make([]float64, rows)
	for i := 0; i < rows; i++ {
		totals[i] = rowTotal(f[i])
		multiplicity[i] = statisticalMultiplicity(f[i], unfolded.Eg, unfolded.Ex[i])
	}

	// Flat starting weights; refined from the previous round's extraction.
	weights := flatWeights(rows)
	firstgen := cloneGrid(f)

	for round := 0; round < m.Rounds; round++ {
		for i := 0; i < rows; i++ {
			row := append([]float64(nil), f[i]...)
			for j := 0; j < i; j++ {
				if weights[i][j] == 0 || totals[j] == 0 {
					continue
				}
				// Normalize the subtracted row so it carries the
				// higher-generation share of row i's counts.
				scale := weights[i][j] * subtractionNorm(totals, multiplicity, i, j)
				for k := 0; k < cols; k++ {
					row[k] -= scale * f[j][k]
				}
			}
			for k := 0; k < cols; k++ {
				if row[k] < 0 {
					row[k] = 0
				}
			}
			firstgen[i] = row
		}
		weights = m.refineWeights(firstgen, unfolded.Eg, unfolded.Ex)
	}

	out, err := unfolded.WithValues(firstgen, spectrum.StateFirstGen)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("first generation extracted",
		logging.Int("rows", rows),
		logging.Int("rounds", m.Rounds),
	)
	return out, nil
}

// refineWeights derives decay-branching weights from the extracted
// first-generation spectra: the weight for feeding from row i into row j is
// read off the first-generation intensity at Eg = Ex_i - Ex_j.
func (m *Method) refineWeights(firstgen [][]float64, eg, ex []float64) [][]float64 {
	rows := len(ex)
	weights := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		weights[i] = make([]float64, rows)
		var norm float64
		for j := 0; j < i; j++ {
			gap := ex[i] - ex[j]
			w := valueAtEnergy(firstgen[i], eg, gap)
			if w < 0 {
				w = 0
			}
			weights[i][j] = w
			norm += w
		}
		if norm == 0 {
			// Nothing extracted yet for this row; keep flat weights.
			for j := 0; j < i; j++ {
				weights[i][j] = 1 / float64(i)
			}
			continue
		}
		for j := 0; j < i; j++ {
			weights[i][j] /= norm
		}
	}
	return weights
}

// subtractionNorm scales row j's spectrum to the number of higher-generation
// counts it contributes to row i, using the statistical multiplicities.
func subtractionNorm(totals, multiplicity []float64, i, j int) float64 {
	if totals[j] == 0 || multiplicity[j] == 0 {
		return 0
	}
	higher := multiplicity[i] - 1
	if higher < 0 {
		higher = 0
	}
	return (totals[i] / totals[j]) * (higher / multiplicity[j])
}

// statisticalMultiplicity estimates the mean cascade length of a row as
// Ex / <Eg>, floored at one.
func statisticalMultiplicity(row, eg []float64, ex float64) float64 {
	var weighted, total float64
	for k, v := range row {
		weighted += eg[k] * v
		total += v
	}
	if total == 0 || weighted == 0 {
		return 1
	}
	meanEg := weighted / total
	mult := ex / meanEg
	if mult < 1 || math.IsNaN(mult) || math.IsInf(mult, 0) {
		return 1
	}
	return mult
}

// valueAtEnergy reads the nearest-bin intensity at the given gamma energy,
// returning 0 outside the axis.
func valueAtEnergy(row, eg []float64, energy float64) float64 {
	if len(eg) == 0 || energy < eg[0] || energy > eg[len(eg)-1] {
		return 0
	}
	best := 0
	for k := 1; k < len(eg); k++ {
		if math.Abs(eg[k]-energy) < math.Abs(eg[best]-energy) {
			best = k
		}
	}
	return row[best]
}

func flatWeights(rows int) [][]float64 {
	weights := make([][]float64, rows)
	for i := range weights {
		weights[i] = make([]float64, rows)
		for j := 0; j < i; j++ {
			weights[i][j] = 1 / float64(i)
		}
	}
	return weights
}

func rowTotal(row []float64) float64 {
	var sum float64
	for _, v := range row {
		sum += v
	}
	return sum
}

func cloneGrid(values [][]float64) [][]float64 {
	out := make([][]float64, len(values))
	for i, row := range values {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
