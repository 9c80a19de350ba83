package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/diffable/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// drivers lists every driver the store supports.
var drivers = []string{DriverMattn, DriverModernc}

// forEachDriver runs fn against an in-memory store for every driver.
func forEachDriver(t *testing.T, fn func(t *testing.T, s *Store)) {
	t.Helper()
	for _, d := range drivers {
		t.Run(d, func(t *testing.T) {
			fn(t, OpenMemory(t, WithDriver(d)))
		})
	}
}

var testEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func add(path string, v ir.Value) ir.AtomicChange {
	return ir.NewAdd(ir.MustParsePath(path), v)
}

func update(path string, v, old ir.Value) ir.AtomicChange {
	return ir.NewUpdate(ir.MustParsePath(path), v, old)
}

func remove(path string, old ir.Value) ir.AtomicChange {
	return ir.NewRemove(ir.MustParsePath(path), old)
}
