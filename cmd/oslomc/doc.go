// Command oslomc propagates measurement uncertainty through the Oslo-method
// spectrum analysis pipeline by Monte Carlo resampling.
//
// The generate command perturbs a raw coincidence matrix N times, unfolds
// each realization against a detector response matrix, applies the
// first-generation method, and reduces every stage's ensemble to a per-cell
// standard deviation. Artifacts are checkpointed per draw, so interrupted
// runs resume where they left off. Completed runs are recorded in a local
// SQLite history viewable with the runs command.
package main
