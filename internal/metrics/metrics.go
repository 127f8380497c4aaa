package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	transfersTotal       *prometheus.CounterVec
	transferDuration     prometheus.Histogram
	loginAttemptsTotal   *prometheus.CounterVec
	accountLockouts      prometheus.Counter
	reconcileMismatches  prometheus.Gauge
	reconcileRunsTotal   *prometheus.CounterVec
	reconcileLastRunUnix prometheus.Gauge
}

// NewMetrics registers the collectors on reg (prometheus.DefaultRegisterer in production).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "upi",
				Name:      "transfers_total",
				Help:      "Transfer attempts partitioned by terminal status and failure reason.",
			},
			[]string{"status", "reason"},
		),
		transferDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "upi",
				Name:      "transfer_duration_seconds",
				Help:      "Wall time of a transfer from validation to its terminal state.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		loginAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "upi",
				Name:      "login_attempts_total",
				Help:      "Login attempts partitioned by result.",
			},
			[]string{"result"},
		),
		accountLockouts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "upi",
				Name:      "account_lockouts_total",
				Help:      "Accounts locked after reaching the failed PIN threshold.",
			},
		),
		reconcileMismatches: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "upi",
				Name:      "reconcile_mismatches",
				Help:      "Accounts whose balance disagreed with the ledger in the most recent run.",
			},
		),
		reconcileRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "upi",
				Name:      "reconcile_runs_total",
				Help:      "Reconciliation runs partitioned by result.",
			},
			[]string{"result"},
		),
		reconcileLastRunUnix: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "upi",
				Name:      "reconcile_last_run_unix",
				Help:      "Unix time of the most recent reconciliation run.",
			},
		),
	}
}

func (m *Metrics) ObserveTransfer(status, reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transfersTotal.WithLabelValues(status, reason).Inc()
	m.transferDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.loginAttemptsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLockout() {
	if m == nil {
		return
	}
	m.accountLockouts.Inc()
}

func (m *Metrics) ObserveReconcile(result string, mismatches int, at time.Time) {
	if m == nil {
		return
	}
	m.reconcileRunsTotal.WithLabelValues(result).Inc()
	m.reconcileMismatches.Set(float64(mismatches))
	m.reconcileLastRunUnix.Set(float64(at.Unix()))
}
