package durable

import "github.com/google/uuid"

// BatchIDGenerator generates the id shared by the log entries of one
// logical write. Implemented by UUIDv7Generator and, in tests, by
// testutil.SequentialBatchIDs.
type BatchIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 batch ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7. Panics if the random source
// fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
