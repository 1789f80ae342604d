package ensemble

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"oslomc/internal/cache"
	"oslomc/internal/logging"
	"oslomc/internal/perturb"
	"oslomc/internal/spectrum"
)

// Generate runs the full pipeline for number draws and reduces each stage's
// ensemble to a standard-deviation summary. Any stage failure aborts the
// whole call; completed draws stay in the artifact store, so a subsequent
// call with regenerate=false resumes from them. With a fully populated store
// and regenerate=false the summaries are reproduced bit-identically.
func (e *Ensemble) Generate(ctx context.Context, number int, model perturb.Model, regenerate bool) error {
	if number <= 0 {
		return fmt.Errorf("ensemble: draw count must be positive, got %d", number)
	}
	if !model.Valid() {
		return &perturb.UnsupportedMethodError{Name: model.String()}
	}
	if e.Unfolder == nil {
		return fmt.Errorf("%w: unfolder", ErrMissingCollaborator)
	}
	if e.FirstGeneration == nil {
		return fmt.Errorf("%w: first-generation method", ErrMissingCollaborator)
	}

	policy := cache.TrustExisting()
	if regenerate {
		policy = cache.RegenerateAll()
	}
	store, err := cache.Open(e.dir, policy, e.logger)
	if err != nil {
		return err
	}

	e.logger.Info("generating ensemble",
		logging.Int("draws", number),
		logging.String("method", model.String()),
		logging.Bool("regenerate", regenerate),
		logging.Int("workers", e.workers),
	)

	raws := make([]*spectrum.Matrix, number)
	unfoldeds := make([]*spectrum.Matrix, number)
	firstgens := make([]*spectrum.Matrix, number)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.workers)
	for step := 0; step < number; step++ {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			raw, unfolded, firstgen, err := e.runDraw(store, model, step)
			if err != nil {
				return err
			}
			raws[step] = raw
			unfoldeds[step] = unfolded
			firstgens[step] = firstgen
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	rows, cols := e.reference.Shape()
	rawStack := newStack(number, rows, cols)
	unfoldedStack := newStack(number, rows, cols)

	// The first-generation method may rebin; its ensemble shape is fixed by
	// the first draw and every later draw must agree.
	fgRows, fgCols := firstgens[0].Shape()
	firstGenStack := newStack(number, fgRows, fgCols)

	for step := 0; step < number; step++ {
		rawStack.set(step, raws[step].Values)
		unfoldedStack.set(step, unfoldeds[step].Values)
		if r, c := firstgens[step].Shape(); r != fgRows || c != fgCols {
			return fmt.Errorf("%w: firstgen draw %d is %dx%d, ensemble is %dx%d",
				ErrShapeMismatch, step, r, c, fgRows, fgCols)
		}
		firstGenStack.set(step, firstgens[step].Values)
	}

	lastFirstGen := firstgens[number-1]

	stdRaw, err := spectrum.New(rawStack.std(), e.reference.Eg, e.reference.Ex, spectrum.StateStd)
	if err != nil {
		return err
	}
	stdUnfolded, err := spectrum.New(unfoldedStack.std(), e.reference.Eg, e.reference.Ex, spectrum.StateStd)
	if err != nil {
		return err
	}
	stdFirstGen, err := spectrum.New(firstGenStack.std(), lastFirstGen.Eg, lastFirstGen.Ex, spectrum.StateStd)
	if err != nil {
		return err
	}

	if err := store.PutSummary(SummaryRaw, stdRaw); err != nil {
		return err
	}
	if err := store.PutSummary(SummaryUnfolded, stdUnfolded); err != nil {
		return err
	}
	if err := store.PutSummary(SummaryFirstGen, stdFirstGen); err != nil {
		return err
	}

	e.stdRaw = stdRaw
	e.stdUnfolded = stdUnfolded
	e.stdFirstGen = stdFirstGen
	e.firstGenStack = firstGenStack
	e.firstGenAxes = lastFirstGen

	e.logger.Info("ensemble complete",
		logging.Int("draws", number),
		logging.String("store_dir", store.Dir()),
	)
	return nil
}

// runDraw pushes one draw through the three checkpointed stages.
func (e *Ensemble) runDraw(store *cache.Store, model perturb.Model, step int) (raw, unfolded, firstgen *spectrum.Matrix, err error) {
	e.logger.Debug("running draw", logging.Int("step", step))

	raw, err = store.Materialize(cache.StageRaw, step, func() (*spectrum.Matrix, error) {
		return perturb.Draw(e.reference, model, e.seed, step)
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("draw %d: generate raw: %w", step, err)
	}
	if !raw.SameShape(e.reference) {
		return nil, nil, nil, fmt.Errorf("%w: raw draw %d does not match the reference shape", ErrShapeMismatch, step)
	}

	unfolded, err = store.Materialize(cache.StageUnfolded, step, func() (*spectrum.Matrix, error) {
		return e.Unfolder.Unfold(raw)
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("draw %d: unfold: %w", step, err)
	}
	if !unfolded.SameShape(e.reference) {
		return nil, nil, nil, fmt.Errorf("%w: unfolded draw %d does not match the reference shape", ErrShapeMismatch, step)
	}

	firstgen, err = store.Materialize(cache.StageFirstGen, step, func() (*spectrum.Matrix, error) {
		return e.FirstGeneration.Apply(unfolded)
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("draw %d: first generation: %w", step, err)
	}
	return raw, unfolded, firstgen, nil
}
