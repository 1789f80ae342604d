package spectrum

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Ext is the artifact file extension used for persisted spectra.
const Ext = ".json"

type fileEnvelope struct {
	State  State       `json:"state"`
	Eg     []float64   `json:"eg"`
	Ex     []float64   `json:"ex"`
	Values [][]float64 `json:"values"`
}

// Save writes the matrix to path. The write goes through a temp file in the
// same directory and a rename so a crash never leaves a truncated artifact.
func (m *Matrix) Save(path string) error {
	data, err := json.Marshal(fileEnvelope{
		State:  m.State,
		Eg:     m.Eg,
		Ex:     m.Ex,
		Values: m.Values,
	})
	if err != nil {
		return fmt.Errorf("spectrum: encode %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("spectrum: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("spectrum: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("spectrum: close temp for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("spectrum: replace %s: %w", path, err)
	}
	return nil
}

// Load reads a matrix previously written with Save and validates its shape.
func Load(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("spectrum: read %s: %w", path, err)
	}
	var envelope fileEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("spectrum: decode %s: %w", path, err)
	}
	matrix, err := New(envelope.Values, envelope.Eg, envelope.Ex, envelope.State)
	if err != nil {
		return nil, fmt.Errorf("spectrum: %s: %w", path, err)
	}
	return matrix, nil
}
