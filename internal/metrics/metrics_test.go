package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Recorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveTransfer("SUCCESS", "", 15*time.Millisecond)
	m.ObserveTransfer("FAILED", "Invalid recipient identifier", time.Millisecond)
	m.ObserveTransfer("SUCCESS", "", time.Millisecond)
	m.ObserveLogin("invalid_pin")
	m.ObserveLockout()
	m.ObserveReconcile("mismatch", 2, time.Unix(1700000000, 0))

	if got := testutil.ToFloat64(m.transfersTotal.WithLabelValues("SUCCESS", "")); got != 2 {
		t.Errorf("Expected 2 successful transfers, got %v", got)
	}
	if got := testutil.ToFloat64(m.loginAttemptsTotal.WithLabelValues("invalid_pin")); got != 1 {
		t.Errorf("Expected 1 failed login, got %v", got)
	}
	if got := testutil.ToFloat64(m.accountLockouts); got != 1 {
		t.Errorf("Expected 1 lockout, got %v", got)
	}
	if got := testutil.ToFloat64(m.reconcileMismatches); got != 2 {
		t.Errorf("Expected 2 mismatches, got %v", got)
	}
	if got := testutil.ToFloat64(m.reconcileLastRunUnix); got != 1700000000 {
		t.Errorf("Expected last run 1700000000, got %v", got)
	}

	if count := testutil.CollectAndCount(m.transferDuration); count != 1 {
		t.Errorf("Expected one histogram series, got %d", count)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveTransfer("SUCCESS", "", time.Second)
	m.ObserveLogin("success")
	m.ObserveLockout()
	m.ObserveReconcile("ok", 0, time.Now())
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Registering twice on fresh registries must not panic
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}
