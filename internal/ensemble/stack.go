package ensemble

import "math"

// stack holds one pipeline stage's ensemble as a dense (n, rows, cols) cube.
type stack struct {
	n, rows, cols int
	data          []float64
}

func newStack(n, rows, cols int) *stack {
	return &stack{n: n, rows: rows, cols: cols, data: make([]float64, n*rows*cols)}
}

func (s *stack) set(step int, values [][]float64) {
	base := step * s.rows * s.cols
	for i, row := range values {
		copy(s.data[base+i*s.cols:base+(i+1)*s.cols], row)
	}
}

// std reduces the cube along the draw axis with the population standard
// deviation (dividing by n, not n-1, matching np.std). A single-draw stack
// reduces to all zeros.
func (s *stack) std() [][]float64 {
	out := make([][]float64, s.rows)
	cell := s.rows * s.cols
	for i := 0; i < s.rows; i++ {
		out[i] = make([]float64, s.cols)
		for j := 0; j < s.cols; j++ {
			offset := i*s.cols + j
			var mean float64
			for k := 0; k < s.n; k++ {
				mean += s.data[k*cell+offset]
			}
			mean /= float64(s.n)
			var variance float64
			for k := 0; k < s.n; k++ {
				d := s.data[k*cell+offset] - mean
				variance += d * d
			}
			out[i][j] = math.Sqrt(variance / float64(s.n))
		}
	}
	return out
}

// draws unpacks the cube into per-draw grids for external inspection.
func (s *stack) draws() [][][]float64 {
	out := make([][][]float64, s.n)
	cell := s.rows * s.cols
	for k := 0; k < s.n; k++ {
		grid := make([][]float64, s.rows)
		for i := 0; i < s.rows; i++ {
			row := make([]float64, s.cols)
			copy(row, s.data[k*cell+i*s.cols:k*cell+(i+1)*s.cols])
			grid[i] = row
		}
		out[k] = grid
	}
	return out
}
