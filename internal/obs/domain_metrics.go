package obs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// VoucherApplyTotal counts apply attempts by variant and outcome.
	VoucherApplyTotal *prometheus.CounterVec
	// VoucherApplicableTotal counts applicable-voucher lookups by outcome.
	VoucherApplicableTotal *prometheus.CounterVec
	// VoucherLifecycleTotal counts create/update/delete operations by outcome.
	VoucherLifecycleTotal *prometheus.CounterVec
	// VoucherSweepDeactivated counts vouchers deactivated by the expiration sweep.
	VoucherSweepDeactivated prometheus.Counter
	// VoucherSweepDuration records sweep latency in milliseconds.
	VoucherSweepDuration prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers voucher Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		VoucherApplyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_apply_total",
			Help:      "Count of voucher apply attempts by variant and result.",
		}, []string{"variant", "result"})
		VoucherApplicableTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_applicable_checks_total",
			Help:      "Count of applicable-voucher lookups by result.",
		}, []string{"result"})
		VoucherLifecycleTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_lifecycle_total",
			Help:      "Count of voucher lifecycle operations by operation and result.",
		}, []string{"op", "result"})
		VoucherSweepDeactivated = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_sweep_deactivated_total",
			Help:      "Number of vouchers deactivated by the expiration sweep.",
		})
		VoucherSweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "voucher_sweep_duration_ms",
			Help:      "Latency of expiration sweeps in milliseconds.",
			Buckets:   []float64{5, 25, 100, 250, 1000, 5000, 30000},
		})

		VoucherApplyTotal = registerOrReuse(reg, VoucherApplyTotal)
		VoucherApplicableTotal = registerOrReuse(reg, VoucherApplicableTotal)
		VoucherLifecycleTotal = registerOrReuse(reg, VoucherLifecycleTotal)
		VoucherSweepDeactivated = registerOrReuse(reg, VoucherSweepDeactivated)
		VoucherSweepDuration = registerOrReuse(reg, VoucherSweepDuration)
	})
}

// RecordVoucherApply increments the apply counter when metrics are registered.
func RecordVoucherApply(variant, result string) {
	if VoucherApplyTotal != nil {
		VoucherApplyTotal.WithLabelValues(variant, result).Inc()
	}
}

// RecordVoucherApplicable increments the applicable lookup counter.
func RecordVoucherApplicable(result string) {
	if VoucherApplicableTotal != nil {
		VoucherApplicableTotal.WithLabelValues(result).Inc()
	}
}

// RecordVoucherLifecycle increments the lifecycle counter.
func RecordVoucherLifecycle(op, result string) {
	if VoucherLifecycleTotal != nil {
		VoucherLifecycleTotal.WithLabelValues(op, result).Inc()
	}
}

// RecordVoucherSweep observes one sweep run.
func RecordVoucherSweep(deactivated int, took time.Duration) {
	if VoucherSweepDeactivated != nil {
		VoucherSweepDeactivated.Add(float64(deactivated))
	}
	if VoucherSweepDuration != nil {
		VoucherSweepDuration.Observe(DurationMillis(took))
	}
}
