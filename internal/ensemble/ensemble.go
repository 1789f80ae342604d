package ensemble

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"oslomc/internal/logging"
	"oslomc/internal/spectrum"
)

// Summary file names inside the store directory. The raw summary keeps its
// historical name without a _std suffix.
const (
	SummaryRaw      = "raw"
	SummaryUnfolded = "unfolded_std"
	SummaryFirstGen = "first_std"
)

// Ensemble generates perturbed realizations of a reference spectrum and
// estimates per-cell standard deviation at every pipeline stage. Collaborators
// are held by reference; the ensemble owns only its stacks and summaries.
type Ensemble struct {
	reference *spectrum.Matrix
	dir       string

	Unfolder        Unfolder
	FirstGeneration FirstGenerationMethod

	seed    uint64
	workers int
	logger  *slog.Logger

	stdRaw        *spectrum.Matrix
	stdUnfolded   *spectrum.Matrix
	stdFirstGen   *spectrum.Matrix
	firstGenStack *stack
	firstGenAxes  *spectrum.Matrix
}

// Option configures an Ensemble at construction time.
type Option func(*Ensemble)

// WithSeed fixes the base random seed. Draw k uses the stream (seed, k), so a
// fixed seed makes every draw reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Ensemble) { e.seed = seed }
}

// WithWorkers sets how many draws may run concurrently. Values below one fall
// back to sequential execution.
func WithWorkers(workers int) Option {
	return func(e *Ensemble) {
		if workers > 0 {
			e.workers = workers
		}
	}
}

// WithLogger routes driver logging.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Ensemble) { e.logger = logger }
}

// New builds an ensemble for the given reference spectrum, storing artifacts
// under dir (created on first use).
func New(reference *spectrum.Matrix, dir string, opts ...Option) (*Ensemble, error) {
	if reference == nil {
		return nil, errors.New("ensemble: reference spectrum is required")
	}
	rows, cols := reference.Shape()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("ensemble: degenerate reference shape %dx%d", rows, cols)
	}
	e := &Ensemble{
		reference: reference,
		dir:       dir,
		seed:      uint64(time.Now().UnixNano()),
		workers:   1,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "ensemble")
	return e, nil
}

// Reference returns the unperturbed reference spectrum.
func (e *Ensemble) Reference() *spectrum.Matrix { return e.reference }

// Dir returns the artifact directory.
func (e *Ensemble) Dir() string { return e.dir }

// StdRaw returns the raw-stage standard-deviation summary of the last
// completed Generate call, or nil before the first one.
func (e *Ensemble) StdRaw() *spectrum.Matrix { return e.stdRaw }

// StdUnfolded returns the unfolded-stage standard-deviation summary.
func (e *Ensemble) StdUnfolded() *spectrum.Matrix { return e.stdUnfolded }

// StdFirstGen returns the first-generation standard-deviation summary.
func (e *Ensemble) StdFirstGen() *spectrum.Matrix { return e.stdFirstGen }

// FirstGenEnsemble returns the full first-generation stack of the last
// completed run, one grid per draw, for downstream inspection.
func (e *Ensemble) FirstGenEnsemble() [][][]float64 {
	if e.firstGenStack == nil {
		return nil
	}
	return e.firstGenStack.draws()
}
