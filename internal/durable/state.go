package durable

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/diffable/internal/ir"
	"github.com/roach88/diffable/internal/observe"
	"github.com/roach88/diffable/internal/replay"
	"github.com/roach88/diffable/internal/store"
)

// State is the durable log and snapshot set of one named state.
//
// Lifecycle: a State starts Uninitialized; Resume (or Open) rebuilds its
// value, after which batches are appended and snapshots taken for as long
// as the process holds it. There is no terminal state, and Resume may be
// called again at any time to build an independent view of the same
// history.
type State struct {
	backend  store.Backend
	name     string
	policy   Policy
	logger   *slog.Logger
	now      func() time.Time
	metrics  *Metrics
	batchIDs BatchIDGenerator
}

// Option configures a State.
type Option func(*State)

// WithPolicy sets the snapshot policy used by OnUpdate.
//
// Default: DefaultPolicy (every 10 changes).
func WithPolicy(p Policy) Option {
	return func(s *State) {
		s.policy = p
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *State) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the source of snapshot creation times. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *State) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics records activity on m.
func WithMetrics(m *Metrics) Option {
	return func(s *State) {
		s.metrics = m
	}
}

// WithBatchIDs sets the batch id generator. Default: UUIDv7Generator.
func WithBatchIDs(g BatchIDGenerator) Option {
	return func(s *State) {
		if g != nil {
			s.batchIDs = g
		}
	}
}

// New returns the durable state called name on backend. Nothing is read
// until Resume.
func New(backend store.Backend, name string, opts ...Option) *State {
	s := &State{
		backend:  backend,
		name:     name,
		policy:   DefaultPolicy,
		logger:   slog.Default(),
		now:      time.Now,
		batchIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.policy = s.policy.resolved()
	s.logger = s.logger.With("state", name)
	return s
}

// Name returns the state name.
func (s *State) Name() string {
	return s.name
}

// Policy returns the snapshot policy used by OnUpdate.
func (s *State) Policy() Policy {
	return s.policy
}

// Resume rebuilds the current value from storage.
//
// The newest snapshot (if any) is the starting point and the entries
// logged after its change id are replayed over it. Without a snapshot the
// whole log is replayed over initial, the value the state had before its
// first recorded change. A state that was never written resumes to a copy
// of initial. A nil initial is the empty object.
func (s *State) Resume(ctx context.Context, initial ir.Object) (ir.Object, error) {
	snap, ok, err := s.backend.LatestSnapshot(ctx, s.name)
	if err != nil {
		return nil, fmt.Errorf("resume %q: %w", s.name, err)
	}

	var (
		base    *ir.Snapshot
		afterID int64
	)
	if ok {
		base = &snap
		afterID = snap.ChangeID
	}

	entries, err := s.backend.ChangesAfter(ctx, s.name, afterID)
	if err != nil {
		return nil, fmt.Errorf("resume %q: %w", s.name, err)
	}

	value, err := replay.Replay(replay.Sequence(base, entries), fallback(initial))
	if err != nil {
		s.logger.Error("replay failed", "error", err, "after_id", afterID)
		return nil, fmt.Errorf("resume %q: %w", s.name, err)
	}

	s.metrics.replayed(s.name, len(entries))
	s.logger.Debug("resumed",
		"snapshot", ok,
		"after_id", afterID,
		"replayed", len(entries),
	)
	return value, nil
}

// fallback is the NFC-normalized copy of initial replay starts from when
// there is no snapshot.
func fallback(initial ir.Object) ir.Object {
	if initial == nil {
		return ir.Object{}
	}
	return ir.Normalize(initial).(ir.Object)
}

// AppendChanges records changes as one batch in a single transaction.
// An empty batch is a no-op. On error nothing was recorded.
func (s *State) AppendChanges(ctx context.Context, changes []ir.AtomicChange) error {
	if len(changes) == 0 {
		return nil
	}

	batch := s.batchIDs.Generate()
	ids, err := s.backend.AppendChanges(ctx, s.name, batch, changes)
	if err != nil {
		s.logger.Error("append failed", "batch", batch, "count", len(changes), "error", err)
		return fmt.Errorf("append to %q: %w", s.name, err)
	}

	s.metrics.appended(s.name, len(changes))
	s.logger.Debug("appended",
		"batch", batch,
		"count", len(changes),
		"last_id", ids[len(ids)-1],
	)
	return nil
}

// MaybeSnapshot materializes value as a snapshot if policy says one is due
// at the current end of the log. It is meant to run right after a
// successful AppendChanges, with value being the state after that batch.
//
// Never is always a no-op. Any other policy returns ErrInvariantViolation
// when the log is empty.
func (s *State) MaybeSnapshot(ctx context.Context, value ir.Object, policy Policy) error {
	policy = policy.resolved()
	if policy.kind == policyNever {
		return nil
	}

	maxID, err := s.maxChangeID(ctx)
	if err != nil {
		return err
	}
	if !policy.ShouldSnapshot(maxID) {
		return nil
	}
	_, err = s.snapshotAt(ctx, value, maxID)
	return err
}

// Snapshot materializes value bound to the highest change id of the state,
// regardless of policy. value must reflect every logged change.
func (s *State) Snapshot(ctx context.Context, value ir.Object) (ir.Snapshot, error) {
	maxID, err := s.maxChangeID(ctx)
	if err != nil {
		return ir.Snapshot{}, err
	}
	return s.snapshotAt(ctx, value, maxID)
}

func (s *State) maxChangeID(ctx context.Context) (int64, error) {
	maxID, ok, err := s.backend.MaxChangeID(ctx, s.name)
	if err != nil {
		return 0, fmt.Errorf("snapshot %q: %w", s.name, err)
	}
	if !ok {
		return 0, fmt.Errorf("snapshot %q: empty change log: %w", s.name, ErrInvariantViolation)
	}
	return maxID, nil
}

func (s *State) snapshotAt(ctx context.Context, value ir.Object, changeID int64) (ir.Snapshot, error) {
	snap := ir.Snapshot{
		State:     s.name,
		Value:     ir.CloneObject(value),
		ChangeID:  changeID,
		CreatedAt: s.now().UTC(),
	}
	if snap.Value == nil {
		snap.Value = ir.Object{}
	}

	id, err := s.backend.InsertSnapshot(ctx, snap)
	if err != nil {
		s.logger.Error("snapshot failed", "change_id", changeID, "error", err)
		return ir.Snapshot{}, fmt.Errorf("snapshot %q: %w", s.name, err)
	}
	snap.ID = id

	s.metrics.snapshotted(s.name)
	s.logger.Info("snapshot", "id", id, "change_id", changeID)
	return snap, nil
}

// OnUpdate returns the callback that makes a handle durable: it appends
// each batch, then applies the state's policy. ctx is used for every
// storage call the callback makes.
//
// A failed append is returned as is, so the handle rolls the write back.
// A failed snapshot is returned as an *observe.PostCommitError since the
// batch is already in the log.
func (s *State) OnUpdate(ctx context.Context) observe.UpdateFunc {
	return func(changes []ir.AtomicChange, value ir.Object) error {
		if err := s.AppendChanges(ctx, changes); err != nil {
			return err
		}
		if err := s.MaybeSnapshot(ctx, value, s.policy); err != nil {
			return &observe.PostCommitError{Err: err}
		}
		return nil
	}
}

// Open resumes the state and wraps the value in a handle whose writes are
// recorded through OnUpdate(ctx). Opening writes nothing: only mutations
// made through the handle reach the log.
func (s *State) Open(ctx context.Context, initial ir.Object) (*observe.Handle, error) {
	value, err := s.Resume(ctx, initial)
	if err != nil {
		return nil, err
	}
	return observe.Wrap(value, s.OnUpdate(ctx)), nil
}
