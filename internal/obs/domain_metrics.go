package obs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// VouchersIssuedTotal counts SoldVouchers created at checkout.
	VouchersIssuedTotal prometheus.Counter
	// RedemptionTotal counts redemption attempts by result (ok, not_found, already_used, invalid_password, invalid).
	RedemptionTotal *prometheus.CounterVec
	// CheckoutTotal counts checkout outcomes by result.
	CheckoutTotal *prometheus.CounterVec
	// VoucherValueReconciled accumulates voucher value consumed by orders, by currency.
	VoucherValueReconciled *prometheus.CounterVec
	// CheckoutDuration records checkout latency in milliseconds.
	CheckoutDuration prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		VouchersIssuedTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vouchers_issued_total",
			Help:      "Number of gift vouchers sold and issued.",
		}))
		RedemptionTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_redemptions_total",
			Help:      "Voucher redemption attempts by outcome.",
		}, []string{"result"}))
		CheckoutTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout outcomes.",
		}, []string{"result"}))
		VoucherValueReconciled = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_value_reconciled_total",
			Help:      "Voucher value consumed by completed orders.",
		}, []string{"currency"}))
		CheckoutDuration = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_ms",
			Help:      "Checkout latency in milliseconds, including lock wait.",
			Buckets:   defaultBucketsMS,
		}))
	})
}

// ObserveRedemption increments the redemption counter when metrics are registered.
func ObserveRedemption(result string) {
	if RedemptionTotal != nil {
		RedemptionTotal.WithLabelValues(result).Inc()
	}
}

// ObserveCheckout increments the checkout counter when metrics are registered.
func ObserveCheckout(result string) {
	if CheckoutTotal != nil {
		CheckoutTotal.WithLabelValues(result).Inc()
	}
}

// ObserveVouchersIssued adds n to the issued counter.
func ObserveVouchersIssued(n int) {
	if VouchersIssuedTotal != nil && n > 0 {
		VouchersIssuedTotal.Add(float64(n))
	}
}

// ObserveReconciled records consumed voucher value.
func ObserveReconciled(currencyCode string, value float64) {
	if VoucherValueReconciled != nil && value > 0 {
		VoucherValueReconciled.WithLabelValues(currencyCode).Add(value)
	}
}

// ObserveCheckoutDuration records one checkout latency sample.
func ObserveCheckoutDuration(d time.Duration) {
	if CheckoutDuration != nil {
		CheckoutDuration.Observe(DurationMillis(d))
	}
}
