// Package unfold corrects raw spectra for the gamma-detector response with
// the iterative folding method of Guttormsen et al. (NIM A 374, 1996).
//
// Starting from the raw spectrum as the trial solution, each iteration folds
// the trial through the response matrix and feeds the residual back:
//
//	u⁰ = r
//	uⁱ = uⁱ⁻¹ + (r − fⁱ⁻¹),  f = u·R
//
// Every iteration is scored per excitation-energy row by a weighted sum of
// the folded spectrum's chi-square against the raw data and the solution's
// fluctuation (absolute deviation from a Gaussian-smoothed copy). The best
// iteration is selected independently for each row, subject to a minimum
// iteration floor.
package unfold
