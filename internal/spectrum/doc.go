// Package spectrum holds the two-dimensional matrix value object shared by
// every pipeline stage: a grid of counts indexed by gamma energy (Eg, columns)
// and excitation energy (Ex, rows), tagged with a provenance state.
//
// Matrices round-trip through JSON files so per-draw artifacts and summary
// spectra can be checkpointed on disk and reloaded verbatim. Axis arrays are
// treated as immutable once a matrix is built; stages that change the binning
// construct a new matrix instead.
package spectrum
