package perturb

import (
	"fmt"
	"strings"
)

// ErrUnsupportedMethod reports a perturbation method name outside the closed
// set. Callers must treat it as fatal before any artifact I/O happens.
type UnsupportedMethodError struct {
	Name string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("perturb: method %q is not supported (want gaussian or poisson)", e.Name)
}

// Model enumerates the supported perturbation models.
type Model int

const (
	ModelGaussian Model = iota
	ModelPoisson
)

// ParseModel maps a user-facing method name onto the closed Model set.
func ParseModel(name string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gaussian":
		return ModelGaussian, nil
	case "poisson":
		return ModelPoisson, nil
	default:
		return 0, &UnsupportedMethodError{Name: name}
	}
}

func (m Model) String() string {
	switch m {
	case ModelGaussian:
		return "gaussian"
	case ModelPoisson:
		return "poisson"
	default:
		return fmt.Sprintf("model(%d)", int(m))
	}
}

// Valid reports whether the model is a member of the closed set.
func (m Model) Valid() bool {
	return m == ModelGaussian || m == ModelPoisson
}
