// Package diffable gives an in-memory object graph durable,
// crash-consistent persistence.
//
// Writes made through the returned Handle are diffed into atomic changes,
// appended to a change log in one transaction per write, and periodically
// compacted into snapshots. Opening the same state name again, in this
// process or a later one, replays the newest snapshot plus the log after
// it.
//
//	db, err := store.Open("app.db")
//	...
//	cart, err := diffable.CreateState(ctx, db, "cart", ir.Object{"items": ir.Array{}},
//		diffable.WithPolicy(diffable.EveryN(50)))
//	...
//	err = cart.Field("items").Append(ir.String("apple"))
package diffable

import (
	"context"
	"strings"

	"github.com/roach88/diffable/internal/durable"
	"github.com/roach88/diffable/internal/ir"
	"github.com/roach88/diffable/internal/observe"
	"github.com/roach88/diffable/internal/store"
)

type (
	// Handle is a live, write-intercepting view of a persisted value.
	Handle = observe.Handle
	// Backend is the storage a state persists to.
	Backend = store.Backend
	// Policy decides when snapshots are taken.
	Policy = durable.Policy
	// Option configures a state.
	Option = durable.Option
)

// Snapshot policies.
var (
	Never         = durable.Never
	EveryChange   = durable.EveryChange
	EveryN        = durable.EveryN
	ParsePolicy   = durable.ParsePolicy
	DefaultPolicy = durable.DefaultPolicy
)

// State options.
var (
	WithPolicy   = durable.WithPolicy
	WithLogger   = durable.WithLogger
	WithClock    = durable.WithClock
	WithMetrics  = durable.WithMetrics
	WithBatchIDs = durable.WithBatchIDs
)

// CreateState resumes the state called name from backend and returns a
// handle whose writes are persisted. initial is the value the state starts
// from: the log is replayed over it until a snapshot exists, so callers
// pass the same initial value on every run.
//
// ctx is used for the resume and for every storage call made by later
// writes through the handle.
func CreateState(ctx context.Context, backend Backend, name string, initial ir.Object, opts ...Option) (*Handle, error) {
	return durable.New(backend, name, opts...).Open(ctx, initial)
}

// StateName derives a state name from a struct field or property name.
// A leading '#' (private field marker) is dropped.
func StateName(field string) string {
	return strings.TrimPrefix(field, "#")
}
