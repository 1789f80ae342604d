package cache_test

import (
	"errors"
	"os"
	"testing"

	"oslomc/internal/cache"
	"oslomc/internal/spectrum"
	"oslomc/internal/testsupport"
)

func TestMaterializeComputesOnceThenLoads(t *testing.T) {
	store, err := cache.Open(t.TempDir(), cache.TrustExisting(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	computed := 0
	compute := func() (*spectrum.Matrix, error) {
		computed++
		return testsupport.UniformMatrix(t, 2, 2, float64(computed)), nil
	}

	first, err := store.Materialize(cache.StageRaw, 0, compute)
	if err != nil {
		t.Fatalf("first Materialize: %v", err)
	}
	second, err := store.Materialize(cache.StageRaw, 0, compute)
	if err != nil {
		t.Fatalf("second Materialize: %v", err)
	}

	if computed != 1 {
		t.Fatalf("compute ran %d times, want 1", computed)
	}
	if second.Values[0][0] != first.Values[0][0] {
		t.Fatalf("cached value %v differs from computed %v", second.Values[0][0], first.Values[0][0])
	}
	if _, err := os.Stat(store.Path(cache.StageRaw, 0)); err != nil {
		t.Fatalf("artifact not persisted: %v", err)
	}
}

func TestRegenerateAllIgnoresExistingArtifacts(t *testing.T) {
	dir := t.TempDir()
	warm, err := cache.Open(dir, cache.TrustExisting(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := warm.Materialize(cache.StageUnfolded, 3, func() (*spectrum.Matrix, error) {
		return testsupport.UniformMatrix(t, 2, 2, 1), nil
	}); err != nil {
		t.Fatalf("warm Materialize: %v", err)
	}

	cold, err := cache.Open(dir, cache.RegenerateAll(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := cold.Materialize(cache.StageUnfolded, 3, func() (*spectrum.Matrix, error) {
		return testsupport.UniformMatrix(t, 2, 2, 2), nil
	})
	if err != nil {
		t.Fatalf("cold Materialize: %v", err)
	}
	if got.Values[0][0] != 2 {
		t.Fatalf("existing artifact was reused under RegenerateAll: %v", got.Values[0][0])
	}
}

func TestMaterializeWrapsLoadFailures(t *testing.T) {
	dir := t.TempDir()
	store, err := cache.Open(dir, cache.TrustExisting(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := os.WriteFile(store.Path(cache.StageFirstGen, 1), []byte("junk"), 0o644); err != nil {
		t.Fatalf("seed corrupt artifact: %v", err)
	}

	_, err = store.Materialize(cache.StageFirstGen, 1, func() (*spectrum.Matrix, error) {
		t.Fatal("compute must not run when an artifact exists")
		return nil, nil
	})
	if !errors.Is(err, cache.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestComputeErrorsPropagateWithoutArtifact(t *testing.T) {
	store, err := cache.Open(t.TempDir(), cache.TrustExisting(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	wantErr := errors.New("stage exploded")
	_, err = store.Materialize(cache.StageRaw, 7, func() (*spectrum.Matrix, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if _, statErr := os.Stat(store.Path(cache.StageRaw, 7)); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("failed compute must not leave an artifact behind")
	}
}

func TestPutSummaryOverwrites(t *testing.T) {
	store, err := cache.Open(t.TempDir(), cache.TrustExisting(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := store.PutSummary("raw", testsupport.UniformMatrix(t, 2, 2, 1)); err != nil {
		t.Fatalf("first PutSummary: %v", err)
	}
	if err := store.PutSummary("raw", testsupport.UniformMatrix(t, 2, 2, 5)); err != nil {
		t.Fatalf("second PutSummary: %v", err)
	}

	loaded, err := spectrum.Load(store.SummaryPath("raw"))
	if err != nil {
		t.Fatalf("Load summary: %v", err)
	}
	if loaded.Values[0][0] != 5 {
		t.Fatalf("summary not overwritten: %v", loaded.Values[0][0])
	}
}
