// Package firstgen isolates primary (first-generation) gamma transitions in
// an unfolded excitation/gamma-energy matrix.
//
// The spectrum at excitation energy Ex contains gammas from every step of the
// decay cascade. Feeding into a level at lower Ex' produces the same gamma
// spectrum as direct population of Ex', so the higher-generation content of a
// row can be estimated as a weighted sum of the rows below it and subtracted.
// Weights start flat and are refined from the extracted first-generation
// spectrum itself over a fixed number of rounds; subtraction strength is
// normalized by the statistical multiplicity of each row.
package firstgen
