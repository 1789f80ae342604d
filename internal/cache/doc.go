// Package cache checkpoints per-draw pipeline artifacts on disk so an
// interrupted or repeated ensemble run can skip completed work.
//
// Artifacts are keyed by stage name and draw index and stored as one spectrum
// file per key inside the store directory. Whether an existing artifact is
// reused is decided by an injected reuse policy: TrustExisting picks up any
// file already present (no revalidation against the current reference data),
// RegenerateAll recomputes everything. Writes take an advisory file lock per
// artifact so two processes racing to regenerate the same draw do not
// interleave partial files.
package cache
