package obs_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/noah-isme/backend-voucher/internal/obs"
)

func TestDomainMetricsRecord(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("voucher", registry)

	obs.RecordVoucherApply("cart-wise", "ok")
	obs.RecordVoucherApply("cart-wise", "ok")
	obs.RecordVoucherLifecycle("create", "ok")
	obs.RecordVoucherSweep(3, 20*time.Millisecond)

	if got := testutil.ToFloat64(obs.VoucherApplyTotal.WithLabelValues("cart-wise", "ok")); got != 2 {
		t.Fatalf("expected 2 applies, got %v", got)
	}
	if got := testutil.ToFloat64(obs.VoucherLifecycleTotal.WithLabelValues("create", "ok")); got != 1 {
		t.Fatalf("expected 1 create, got %v", got)
	}
	if got := testutil.ToFloat64(obs.VoucherSweepDeactivated); got != 3 {
		t.Fatalf("expected 3 deactivated, got %v", got)
	}
	if n := testutil.CollectAndCount(obs.VoucherSweepDuration); n != 1 {
		t.Fatalf("expected sweep histogram, got %d series", n)
	}
}
