// Package observe turns writes to an in-memory object graph into ordered
// batches of atomic changes.
//
// Wrap returns a Handle over a root object. Every write made through the
// handle, or through any nested handle derived from it, is one logical
// write: the root is captured before the write, the write is applied, and
// Diff computes the minimal set of ADD, UPDATE and REMOVE changes between
// the two. A write that changes nothing produces no callback.
//
// The callback decides whether the write sticks. Returning an error rolls
// the in-memory value back to its pre-write state, which keeps the live
// value and the durable log in agreement when an append fails.
package observe
