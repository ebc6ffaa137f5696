// Package metrics exposes scheduling counters and latencies to Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolve outcomes.
const (
	OutcomeAssigned   = "assigned"
	OutcomeWidened    = "widened"
	OutcomeInfeasible = "infeasible"
	OutcomeInvalid    = "invalid"
	OutcomeConflict   = "conflict"
	OutcomeError      = "error"
)

// Scheduler records scheduling activity. A nil *Scheduler records nothing.
type Scheduler struct {
	resolves      *prometheus.CounterVec
	resolveTime   prometheus.Histogram
	lockContended *prometheus.CounterVec
	commitRetries prometheus.Counter
	transitions   *prometheus.CounterVec
	batchSuccess  prometheus.Gauge
}

// NewScheduler registers the scheduling collectors on reg. If reg is nil, the
// default registerer is used. Collectors that are already registered are
// reused.
func NewScheduler(reg prometheus.Registerer) (*Scheduler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &Scheduler{}
	var err error
	if s.resolves, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smartmove_resolve_total",
		Help: "Assignment resolutions by outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if s.resolveTime, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "smartmove_resolve_duration_seconds",
		Help:    "Time spent searching for a slot, vehicle and driver",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.lockContended, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smartmove_lock_contention_total",
		Help: "Resource locks that were already held by another approval",
	}, []string{"resource"})); err != nil {
		return nil, err
	}
	if s.commitRetries, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "smartmove_commit_retries_total",
		Help: "Approval commits retried after a conflict or lock contention",
	})); err != nil {
		return nil, err
	}
	if s.transitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smartmove_transitions_total",
		Help: "Request lifecycle transitions by event",
	}, []string{"event"})); err != nil {
		return nil, err
	}
	if s.batchSuccess, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smartmove_batch_success_ratio",
		Help: "Share of requests placed by the last batch run",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveResolve records one resolution and how long it took.
func (s *Scheduler) ObserveResolve(outcome string, took time.Duration) {
	if s == nil {
		return
	}
	s.resolves.WithLabelValues(outcome).Inc()
	s.resolveTime.Observe(took.Seconds())
}

// LockContended records a lock that could not be taken.
func (s *Scheduler) LockContended(resource string) {
	if s == nil {
		return
	}
	s.lockContended.WithLabelValues(resource).Inc()
}

// CommitRetried records a retried approval commit.
func (s *Scheduler) CommitRetried() {
	if s == nil {
		return
	}
	s.commitRetries.Inc()
}

// Transitioned records a lifecycle transition.
func (s *Scheduler) Transitioned(event string) {
	if s == nil {
		return
	}
	s.transitions.WithLabelValues(event).Inc()
}

// BatchCompleted records the success ratio of a batch run, in [0, 1].
func (s *Scheduler) BatchCompleted(ratio float64) {
	if s == nil {
		return
	}
	s.batchSuccess.Set(ratio)
}
