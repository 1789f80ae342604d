package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"oslomc/internal/logging"
	"oslomc/internal/spectrum"
)

// ErrStorage marks read or write failures on checkpoint artifacts. Storage
// failures are fatal for the whole run; no partial summary is produced.
var ErrStorage = errors.New("artifact storage failure")

// Stage names a checkpointed pipeline step. The name is part of the on-disk
// artifact key, so changing one invalidates existing caches.
type Stage string

const (
	StageRaw      Stage = "raw"
	StageUnfolded Stage = "unfolded"
	StageFirstGen Stage = "firstgen"
)

// ReusePolicy decides whether an existing artifact may satisfy a lookup.
type ReusePolicy interface {
	Reuse(path string) bool
}

type trustExisting struct{}

func (trustExisting) Reuse(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

type regenerateAll struct{}

func (regenerateAll) Reuse(string) bool { return false }

// TrustExisting reuses any artifact already on disk, verbatim.
func TrustExisting() ReusePolicy { return trustExisting{} }

// RegenerateAll ignores existing artifacts and recomputes every stage.
func RegenerateAll() ReusePolicy { return regenerateAll{} }

// Store is a key-value store of spectra keyed by (stage, draw index), backed
// by one directory per ensemble.
type Store struct {
	dir    string
	policy ReusePolicy
	logger *slog.Logger
}

// Open ensures the store directory exists and returns a store using the
// given reuse policy.
func Open(dir string, policy ReusePolicy, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty store directory", ErrStorage)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrStorage, dir, err)
	}
	if policy == nil {
		policy = TrustExisting()
	}
	return &Store{
		dir:    dir,
		policy: policy,
		logger: logging.NewComponentLogger(logger, "cache"),
	}, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the artifact path for a (stage, step) key.
func (s *Store) Path(stage Stage, step int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%d%s", stage, step, spectrum.Ext))
}

// SummaryPath returns the path of a fixed-name summary artifact.
func (s *Store) SummaryPath(name string) string {
	return filepath.Join(s.dir, name+spectrum.Ext)
}

// Materialize returns the artifact for (stage, step), loading it from disk
// when the reuse policy allows and otherwise invoking compute and persisting
// its result. Compute runs under a per-artifact advisory lock so concurrent
// regeneration of the same draw index cannot interleave writes.
func (s *Store) Materialize(stage Stage, step int, compute func() (*spectrum.Matrix, error)) (*spectrum.Matrix, error) {
	path := s.Path(stage, step)
	if s.policy.Reuse(path) {
		s.logger.Debug("loading cached artifact",
			logging.String("stage", string(stage)),
			logging.Int("step", step),
			logging.String("path", path),
		)
		matrix, err := spectrum.Load(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		return matrix, nil
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("%w: lock %s: %w", ErrStorage, path, err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	s.logger.Debug("generating artifact",
		logging.String("stage", string(stage)),
		logging.Int("step", step),
		logging.String("path", path),
	)
	matrix, err := compute()
	if err != nil {
		return nil, err
	}
	if err := matrix.Save(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return matrix, nil
}

// PutSummary persists a summary spectrum under a fixed name, overwriting any
// previous summary.
func (s *Store) PutSummary(name string, matrix *spectrum.Matrix) error {
	if err := matrix.Save(s.SummaryPath(name)); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}
