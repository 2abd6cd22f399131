package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks aggregation passes and transaction submissions.
type Metrics struct {
	passes         *prometheus.CounterVec
	passDuration   prometheus.Histogram
	staleSnapshots prometheus.Counter
	transactions   *prometheus.CounterVec
	approvals      *prometheus.CounterVec
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Metrics
)

// Default returns the process-wide metrics registered on the default registerer.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultRegistry = New(prometheus.DefaultRegisterer)
	})
	return defaultRegistry
}

// New builds a metrics set and registers it on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delta_aggregation_passes_total",
			Help: "Count of pool aggregation passes by result.",
		}, []string{"result"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "delta_aggregation_pass_seconds",
			Help:    "Wall time of pool aggregation passes.",
			Buckets: prometheus.DefBuckets,
		}),
		staleSnapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delta_stale_snapshots_total",
			Help: "Snapshots discarded because a newer pass had already been stored.",
		}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delta_transactions_total",
			Help: "Submitted transactions by method and status.",
		}, []string{"method", "status"}),
		approvals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delta_approvals_total",
			Help: "Allowance checks by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.passes, m.passDuration, m.staleSnapshots, m.transactions, m.approvals)
	}
	return m
}

func (m *Metrics) ObservePass(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(result).Inc()
	m.passDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveStaleSnapshot() {
	if m == nil {
		return
	}
	m.staleSnapshots.Inc()
}

func (m *Metrics) ObserveTransaction(method, status string) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.transactions.WithLabelValues(method, status).Inc()
}

func (m *Metrics) ObserveApproval(outcome string) {
	if m == nil {
		return
	}
	m.approvals.WithLabelValues(outcome).Inc()
}
