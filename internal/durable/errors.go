package durable

import "errors"

// ErrInvariantViolation is returned when a snapshot is requested for a
// state whose log is empty: there is no change id to bind it to.
var ErrInvariantViolation = errors.New("durable: invariant violation")
