package testutil

import (
	"fmt"
	"sync"
)

// SequentialBatchIDs generates "<prefix>-0001", "<prefix>-0002", ...
//
// This enables deterministic test execution and golden trace comparison:
// the same scenario produces byte-identical batch ids on every run.
// Implements durable.BatchIDGenerator.
//
// Thread-safety: SequentialBatchIDs is safe for concurrent use.
type SequentialBatchIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialBatchIDs creates a generator. If prefix is empty, "batch"
// is used.
func NewSequentialBatchIDs(prefix string) *SequentialBatchIDs {
	if prefix == "" {
		prefix = "batch"
	}
	return &SequentialBatchIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialBatchIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
