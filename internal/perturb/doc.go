// Package perturb generates randomized realizations of a measured spectrum
// for Monte Carlo uncertainty propagation.
//
// Two models are supported: a Gaussian model drawing each cell from
// Normal(count, sqrt(count)) with negatives clamped to zero, and a Poisson
// model drawing from Poisson(sqrt(count)). The sqrt rate in the Poisson
// branch matches the upstream Oslo-method implementation exactly and is kept
// for compatibility even though the conventional Poisson noise model would
// use the count itself as the rate.
//
// Draws are seeded per (run seed, draw index) so a given draw is reproducible
// and independent of the order in which draws are computed.
package perturb
