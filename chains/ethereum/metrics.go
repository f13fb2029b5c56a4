package ethereum

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type clientMetrics struct {
	callsTotal   *prometheus.CounterVec
	callDuration prometheus.Histogram
	txsTotal     *prometheus.CounterVec
}

func newClientMetrics(registry prometheus.Registerer) *clientMetrics {
	m := &clientMetrics{
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broker",
			Subsystem: "ethereum",
			Name:      "contract_calls_total",
			Help:      "Contract read calls issued, by method and outcome.",
		}, []string{"method", "outcome"}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "broker",
			Subsystem: "ethereum",
			Name:      "contract_call_duration_seconds",
			Help:      "Latency of contract read calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		txsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broker",
			Subsystem: "ethereum",
			Name:      "transactions_total",
			Help:      "Transactions submitted, by method and outcome.",
		}, []string{"method", "outcome"}),
	}

	if registry != nil {
		registry.MustRegister(m.callsTotal, m.callDuration, m.txsTotal)
	}
	return m
}

func outcomeLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func (m *clientMetrics) observeCall(method string, d time.Duration, err error) {
	m.callsTotal.WithLabelValues(method, outcomeLabel(err == nil)).Inc()
	m.callDuration.Observe(d.Seconds())
}

func (m *clientMetrics) observeTx(method string, ok bool) {
	m.txsTotal.WithLabelValues(method, outcomeLabel(ok)).Inc()
}
