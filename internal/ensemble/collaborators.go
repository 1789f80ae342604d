package ensemble

import (
	"errors"

	"oslomc/internal/spectrum"
)

// Unfolder corrects a raw spectrum for the detector response. It must accept
// any spectrum shaped like the reference and return one of the same shape.
type Unfolder interface {
	Unfold(raw *spectrum.Matrix) (*spectrum.Matrix, error)
}

// FirstGenerationMethod extracts the primary gamma transitions from an
// unfolded spectrum. The output may be rebinned to a different shape, but the
// shape must be the same for every draw of a run.
type FirstGenerationMethod interface {
	Apply(unfolded *spectrum.Matrix) (*spectrum.Matrix, error)
}

// FirstGenerationFunc adapts a plain function to FirstGenerationMethod.
type FirstGenerationFunc func(*spectrum.Matrix) (*spectrum.Matrix, error)

func (f FirstGenerationFunc) Apply(unfolded *spectrum.Matrix) (*spectrum.Matrix, error) {
	return f(unfolded)
}

var (
	// ErrMissingCollaborator reports that the unfolder or first-generation
	// method was not configured before Generate was called.
	ErrMissingCollaborator = errors.New("ensemble: collaborator not configured")

	// ErrShapeMismatch reports a stage output whose shape disagrees with the
	// shape established for that stage's ensemble.
	ErrShapeMismatch = errors.New("ensemble: stage output shape mismatch")
)
