package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePass("ok", 10*time.Millisecond)
	m.ObservePass("ok", 20*time.Millisecond)
	m.ObservePass("error", time.Millisecond)
	m.ObserveStaleSnapshot()
	m.ObserveTransaction("supply", "success")
	m.ObserveTransaction("", "reverted")
	m.ObserveApproval("skipped")

	if got := testutil.ToFloat64(m.passes.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ok passes: %v", got)
	}
	if got := testutil.ToFloat64(m.staleSnapshots); got != 1 {
		t.Fatalf("stale snapshots: %v", got)
	}
	if got := testutil.ToFloat64(m.transactions.WithLabelValues("unknown", "reverted")); got != 1 {
		t.Fatalf("unknown method should be labeled: %v", got)
	}
	if got := testutil.ToFloat64(m.approvals.WithLabelValues("skipped")); got != 1 {
		t.Fatalf("approvals skipped: %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObservePass("ok", time.Second)
	m.ObserveStaleSnapshot()
	m.ObserveTransaction("borrow", "success")
	m.ObserveApproval("issued")
}
