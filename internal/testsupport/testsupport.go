// Package testsupport provides shared fixtures for oslomc tests: reference
// matrices, identity collaborators, and per-test configurations.
package testsupport

import (
	"path/filepath"
	"testing"

	"oslomc/internal/config"
	"oslomc/internal/spectrum"
)

// UniformMatrix builds a rows x cols matrix with every cell set to value.
// Axes are evenly spaced starting at bin width 100 keV.
func UniformMatrix(t testing.TB, rows, cols int, value float64) *spectrum.Matrix {
	t.Helper()

	values := make([][]float64, rows)
	for i := range values {
		values[i] = make([]float64, cols)
		for j := range values[i] {
			values[i][j] = value
		}
	}
	m, err := spectrum.New(values, Axis(cols), Axis(rows), spectrum.StateRaw)
	if err != nil {
		t.Fatalf("build uniform matrix: %v", err)
	}
	return m
}

// Axis returns n evenly spaced bin centers: 100, 200, ...
func Axis(n int) []float64 {
	axis := make([]float64, n)
	for i := range axis {
		axis[i] = float64((i + 1) * 100)
	}
	return axis
}

// IdentityResponse builds an n x n identity response matrix over the same
// axis convention as Axis, so folding leaves spectra untouched.
func IdentityResponse(t testing.TB, n int) *spectrum.Matrix {
	t.Helper()

	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		values[i][i] = 1
	}
	m, err := spectrum.New(values, Axis(n), Axis(n), spectrum.StateRaw)
	if err != nil {
		t.Fatalf("build identity response: %v", err)
	}
	return m
}

// IdentityUnfolder passes raw spectra through unchanged, retagged unfolded.
type IdentityUnfolder struct{}

func (IdentityUnfolder) Unfold(raw *spectrum.Matrix) (*spectrum.Matrix, error) {
	out := raw.Clone()
	out.State = spectrum.StateUnfolded
	return out, nil
}

// IdentityFirstGen passes unfolded spectra through unchanged, retagged
// firstgen.
func IdentityFirstGen(unfolded *spectrum.Matrix) (*spectrum.Matrix, error) {
	out := unfolded.Clone()
	out.State = spectrum.StateFirstGen
	return out, nil
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "ensembles")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	return &cfg
}
