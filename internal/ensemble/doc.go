// Package ensemble drives Monte Carlo uncertainty propagation through the
// three-stage Oslo-method pipeline: perturb the reference spectrum, unfold
// each perturbed copy, apply the first-generation method, and reduce every
// stage's ensemble to a per-cell standard deviation.
//
// Each (stage, draw) artifact is checkpointed through the cache store, so a
// failed or interrupted run resumes from completed draws on the next call.
// Draws are independent and may be fanned out over workers; per-draw seeding
// keeps the output identical regardless of worker count.
package ensemble
