package spectrum

import (
	"errors"
	"fmt"
)

// State records which pipeline stage produced a matrix.
type State string

const (
	StateRaw      State = "raw"
	StateUnfolded State = "unfolded"
	StateFirstGen State = "firstgen"
	StateStd      State = "std"
)

// Valid reports whether the state is one of the known provenance tags.
func (s State) Valid() bool {
	switch s {
	case StateRaw, StateUnfolded, StateFirstGen, StateStd:
		return true
	}
	return false
}

// Matrix is a grid of counts over gamma energy (Eg, columns) and excitation
// energy (Ex, rows). Values[i][j] is the count at Ex[i], Eg[j].
type Matrix struct {
	Values [][]float64
	Eg     []float64
	Ex     []float64
	State  State
}

// New builds a matrix and checks the values grid against the axes.
func New(values [][]float64, eg, ex []float64, state State) (*Matrix, error) {
	if len(values) != len(ex) {
		return nil, fmt.Errorf("spectrum: %d value rows for %d Ex bins", len(values), len(ex))
	}
	for i, row := range values {
		if len(row) != len(eg) {
			return nil, fmt.Errorf("spectrum: row %d has %d columns for %d Eg bins", i, len(row), len(eg))
		}
	}
	if len(eg) == 0 || len(ex) == 0 {
		return nil, errors.New("spectrum: empty axis")
	}
	return &Matrix{Values: values, Eg: eg, Ex: ex, State: state}, nil
}

// Zeros allocates a zero-filled matrix over the given axes.
func Zeros(eg, ex []float64, state State) *Matrix {
	values := make([][]float64, len(ex))
	for i := range values {
		values[i] = make([]float64, len(eg))
	}
	return &Matrix{Values: values, Eg: eg, Ex: ex, State: state}
}

// Shape returns (rows, cols) = (len(Ex), len(Eg)).
func (m *Matrix) Shape() (int, int) {
	return len(m.Ex), len(m.Eg)
}

// SameShape reports whether two matrices have identical grid dimensions.
func (m *Matrix) SameShape(other *Matrix) bool {
	if m == nil || other == nil {
		return false
	}
	return len(m.Ex) == len(other.Ex) && len(m.Eg) == len(other.Eg)
}

// Clone deep-copies the values grid; the axis slices are copied as well so
// the clone is fully independent.
func (m *Matrix) Clone() *Matrix {
	values := make([][]float64, len(m.Values))
	for i, row := range m.Values {
		values[i] = append([]float64(nil), row...)
	}
	return &Matrix{
		Values: values,
		Eg:     append([]float64(nil), m.Eg...),
		Ex:     append([]float64(nil), m.Ex...),
		State:  m.State,
	}
}

// WithValues returns a new matrix sharing this matrix's axes with a fresh
// values grid. The grid must match the axes.
func (m *Matrix) WithValues(values [][]float64, state State) (*Matrix, error) {
	return New(values, m.Eg, m.Ex, state)
}

// Total sums every cell.
func (m *Matrix) Total() float64 {
	var sum float64
	for _, row := range m.Values {
		for _, v := range row {
			sum += v
		}
	}
	return sum
}

// Max returns the largest cell value, or 0 for an empty matrix.
func (m *Matrix) Max() float64 {
	var max float64
	first := true
	for _, row := range m.Values {
		for _, v := range row {
			if first || v > max {
				max = v
				first = false
			}
		}
	}
	return max
}

// RemoveNegative clamps every negative cell to zero in place.
func (m *Matrix) RemoveNegative() {
	for _, row := range m.Values {
		for j, v := range row {
			if v < 0 {
				row[j] = 0
			}
		}
	}
}
