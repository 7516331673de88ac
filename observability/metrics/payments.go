package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type PaymentsMetrics struct {
	instructionsApplied *prometheus.CounterVec
	instructionsFailed  *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
}

var (
	paymentsOnce     sync.Once
	paymentsRegistry *PaymentsMetrics
)

func Payments() *PaymentsMetrics {
	paymentsOnce.Do(func() {
		paymentsRegistry = &PaymentsMetrics{
			instructionsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "paygate_instructions_applied_total",
				Help: "Count of successfully applied instructions by type.",
			}, []string{"type"}),
			instructionsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "paygate_instructions_failed_total",
				Help: "Count of rejected instructions by type.",
			}, []string{"type"}),
			requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "paygate_rpc_request_seconds",
				Help:    "JSON-RPC request duration by method.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(
			paymentsRegistry.instructionsApplied,
			paymentsRegistry.instructionsFailed,
			paymentsRegistry.requestDuration,
		)
	})
	return paymentsRegistry
}

func (m *PaymentsMetrics) ObserveApplied(instructionType string) {
	if m == nil {
		return
	}
	if instructionType == "" {
		instructionType = "unknown"
	}
	m.instructionsApplied.WithLabelValues(instructionType).Inc()
}

func (m *PaymentsMetrics) ObserveFailed(instructionType string) {
	if m == nil {
		return
	}
	if instructionType == "" {
		instructionType = "unknown"
	}
	m.instructionsFailed.WithLabelValues(instructionType).Inc()
}

func (m *PaymentsMetrics) ObserveRequest(method string, seconds float64) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.requestDuration.WithLabelValues(method).Observe(seconds)
}
