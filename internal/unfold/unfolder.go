package unfold

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"oslomc/internal/logging"
	"oslomc/internal/spectrum"
)

// calibrationEps bounds the allowed disagreement between the raw and
// response gamma-energy axes.
const calibrationEps = 1e-3

// Unfolder performs Guttormsen unfolding against a fixed response matrix.
type Unfolder struct {
	// NumIter is how many folding iterations to run before scoring.
	NumIter int
	// WeightFluctuation balances fluctuation against chi-square in scoring.
	WeightFluctuation float64
	// MinIterations is the lowest iteration the per-row selection may pick.
	MinIterations int
	// FluctuationSigma scales the Gaussian smoothing width used by the
	// fluctuation score, in units of the Eg bin width.
	FluctuationSigma float64

	response *spectrum.Matrix
	logger   *slog.Logger
}

// Option configures an Unfolder.
type Option func(*Unfolder)

// WithIterations overrides the iteration count.
func WithIterations(n int) Option {
	return func(u *Unfolder) {
		if n > 0 {
			u.NumIter = n
		}
	}
}

// WithLogger routes unfolder logging.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Unfolder) { u.logger = logger }
}

// New builds an unfolder for the given response matrix. The response must be
// square over the gamma-energy axis, normalized so each response row sums
// to one.
func New(response *spectrum.Matrix, opts ...Option) (*Unfolder, error) {
	if response == nil {
		return nil, errors.New("unfold: response matrix is required")
	}
	rows, cols := response.Shape()
	if rows != cols {
		return nil, fmt.Errorf("unfold: response must be square, got %dx%d", rows, cols)
	}
	u := &Unfolder{
		NumIter:           33,
		WeightFluctuation: 0.2,
		MinIterations:     3,
		FluctuationSigma:  0.12,
		response:          response,
	}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = logging.NewComponentLogger(u.logger, "unfold")
	return u, nil
}

// Unfold runs the iterative unfolding and returns the per-row best solution
// with negatives clamped to zero.
func (u *Unfolder) Unfold(raw *spectrum.Matrix) (*spectrum.Matrix, error) {
	if err := u.checkCalibration(raw); err != nil {
		return nil, err
	}
	numIter := u.NumIter
	if numIter < 1 {
		numIter = 1
	}
	minIter := u.MinIterations
	if minIter > numIter-1 {
		minIter = numIter - 1
	}

	rows, cols := raw.Shape()
	r := mat.NewDense(rows, cols, flatten(raw.Values))
	response := mat.NewDense(cols, cols, flatten(u.response.Values))
	mask := diagonalMask(raw)

	iterations := make([][][]float64, numIter)
	chiSquare := make([][]float64, numIter)
	fluctuations := make([][]float64, numIter)

	unfolded := mat.DenseCopyOf(r)
	folded := mat.NewDense(rows, cols, nil)
	residual := mat.NewDense(rows, cols, nil)

	for i := 0; i < numIter; i++ {
		if i > 0 {
			residual.Sub(r, folded)
			unfolded.Add(unfolded, residual)
		}
		folded.Mul(unfolded, response)
		applyMask(folded, mask)

		iterations[i] = toGrid(unfolded, rows, cols)
		chiSquare[i] = chiSquareRows(folded, r)
		fluctuations[i] = u.fluctuationRows(iterations[i], raw.Eg)

		u.logger.Debug("unfolding iteration",
			logging.Int("iteration", i),
			logging.Float64("avg_chisquare", mean(chiSquare[i])),
		)
	}

	// Normalize fluctuations against those of the raw spectrum so the score
	// compares like against like.
	rawFluct := u.fluctuationRows(raw.Values, raw.Eg)
	for i := range fluctuations {
		for row := range fluctuations[i] {
			fluctuations[i][row] = zeroDiv(fluctuations[i][row], rawFluct[row])
		}
	}

	selected := u.score(chiSquare, fluctuations, minIter)
	values := make([][]float64, rows)
	for row := 0; row < rows; row++ {
		values[row] = append([]float64(nil), iterations[selected[row]][row]...)
	}

	out, err := spectrum.New(values, raw.Eg, raw.Ex, spectrum.StateUnfolded)
	if err != nil {
		return nil, err
	}
	out.RemoveNegative()
	return out, nil
}

// checkCalibration rejects raw spectra whose gamma axis disagrees with the
// response; both must be cut and rebinned identically before unfolding.
func (u *Unfolder) checkCalibration(raw *spectrum.Matrix) error {
	if len(raw.Eg) != len(u.response.Eg) {
		return fmt.Errorf("unfold: raw has %d Eg bins, response has %d", len(raw.Eg), len(u.response.Eg))
	}
	for i := range raw.Eg {
		if math.Abs(raw.Eg[i]-u.response.Eg[i]) > calibrationEps {
			return fmt.Errorf("unfold: calibration mismatch at Eg bin %d: raw %.4f vs response %.4f",
				i, raw.Eg[i], u.response.Eg[i])
		}
	}
	return nil
}

// score combines chi-square and normalized fluctuation per (iteration, row)
// and picks the best iteration for each row, no earlier than minIter.
func (u *Unfolder) score(chiSquare, fluctuations [][]float64, minIter int) []int {
	numIter := len(chiSquare)
	rows := len(chiSquare[0])
	selected := make([]int, rows)
	for row := 0; row < rows; row++ {
		best := 0
		bestScore := math.Inf(1)
		for i := 0; i < numIter; i++ {
			s := (1-u.WeightFluctuation)*chiSquare[i][row] + u.WeightFluctuation*fluctuations[i][row]
			if s < bestScore {
				bestScore = s
				best = i
			}
		}
		if best < minIter {
			best = minIter
		}
		selected[row] = best
	}
	return selected
}

// fluctuationRows sums, for every row, the absolute difference between the
// row and a Gaussian-smoothed copy of it.
func (u *Unfolder) fluctuationRows(values [][]float64, eg []float64) []float64 {
	binWidth := 1.0
	if len(eg) > 1 {
		binWidth = eg[1] - eg[0]
	}
	sigma := u.FluctuationSigma * binWidth
	out := make([]float64, len(values))
	for i, row := range values {
		smoothed := gaussianSmooth(row, sigma)
		var sum float64
		for j := range row {
			sum += math.Abs(smoothed[j] - row[j])
		}
		out[i] = sum
	}
	return out
}

// chiSquareRows computes the per-row chi-square of the folded spectrum
// against the raw data, skipping empty raw cells.
func chiSquareRows(folded, raw *mat.Dense) []float64 {
	rows, cols := raw.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		var sum float64
		for j := 0; j < cols; j++ {
			r := raw.At(i, j)
			if r <= 0 {
				continue
			}
			d := folded.At(i, j) - r
			sum += d * d / r
		}
		out[i] = sum
	}
	return out
}

// diagonalMask marks cells above the Ex = Eg diagonal (plus one bin of
// slack), where no physical counts can appear.
func diagonalMask(m *spectrum.Matrix) [][]bool {
	rows, cols := m.Shape()
	slack := 0.0
	if len(m.Eg) > 1 {
		slack = m.Eg[1] - m.Eg[0]
	}
	mask := make([][]bool, rows)
	for i := 0; i < rows; i++ {
		mask[i] = make([]bool, cols)
		for j := 0; j < cols; j++ {
			mask[i][j] = m.Eg[j] > m.Ex[i]+slack
		}
	}
	return mask
}

func applyMask(m *mat.Dense, mask [][]bool) {
	for i, row := range mask {
		for j, masked := range row {
			if masked {
				m.Set(i, j, 0)
			}
		}
	}
}

// gaussianSmooth convolves data with a normalized Gaussian kernel of the
// given sigma (in bins), reflecting at the edges.
func gaussianSmooth(data []float64, sigma float64) []float64 {
	if sigma <= 0 {
		return append([]float64(nil), data...)
	}
	radius := int(math.Ceil(4 * sigma))
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	var norm float64
	for k := -radius; k <= radius; k++ {
		w := math.Exp(-float64(k*k) / (2 * sigma * sigma))
		kernel[k+radius] = w
		norm += w
	}
	for k := range kernel {
		kernel[k] /= norm
	}

	n := len(data)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for k := -radius; k <= radius; k++ {
			idx := reflectIndex(i+k, n)
			sum += kernel[k+radius] * data[idx]
		}
		out[i] = sum
	}
	return out
}

func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i = ((i % period) + period) % period
	if i >= n {
		i = period - 1 - i
	}
	return i
}

func flatten(values [][]float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	cols := len(values[0])
	flat := make([]float64, 0, len(values)*cols)
	for _, row := range values {
		flat = append(flat, row...)
	}
	return flat
}

func toGrid(m *mat.Dense, rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

func zeroDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
