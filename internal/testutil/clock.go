package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall time DeterministicClock counts from.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock hands out Epoch plus one second per call, so snapshot
// times are strictly increasing and identical across runs.
type DeterministicClock struct {
	mu    sync.Mutex
	ticks int64
}

func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Now has the signature of time.Now, for durable.WithClock.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return Epoch.Add(time.Duration(c.ticks) * time.Second)
}
