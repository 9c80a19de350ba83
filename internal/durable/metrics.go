package durable

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts log and snapshot activity per state name.
// A nil *Metrics records nothing.
type Metrics struct {
	changesAppended *prometheus.CounterVec
	batchesAppended *prometheus.CounterVec
	snapshots       *prometheus.CounterVec
	replayedChanges *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them on reg.
// A nil reg leaves them unregistered. Panics if registration fails, as
// promauto does.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// changesAppended counts log entries written
		changesAppended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diffable_changes_appended_total",
			Help: "Total change log entries appended by state",
		}, []string{"state"}),

		// batchesAppended counts committed mutation batches
		batchesAppended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diffable_batches_appended_total",
			Help: "Total mutation batches appended by state",
		}, []string{"state"}),

		snapshots: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diffable_snapshots_total",
			Help: "Total snapshots materialized by state",
		}, []string{"state"}),

		// replayedChanges counts log entries applied during resume
		replayedChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diffable_replayed_changes_total",
			Help: "Total change log entries replayed on resume by state",
		}, []string{"state"}),
	}
}

func (m *Metrics) appended(state string, n int) {
	if m == nil {
		return
	}
	m.changesAppended.WithLabelValues(state).Add(float64(n))
	m.batchesAppended.WithLabelValues(state).Inc()
}

func (m *Metrics) snapshotted(state string) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(state).Inc()
}

func (m *Metrics) replayed(state string, n int) {
	if m == nil {
		return
	}
	m.replayedChanges.WithLabelValues(state).Add(float64(n))
}
