package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the payment-path counters. Services tolerate a nil *Metrics
// so tests can run without a registry.
type Metrics struct {
	StkInitiated       *prometheus.CounterVec
	CallbacksReceived  prometheus.Counter
	CallbacksApplied   *prometheus.CounterVec
	DuplicateCallbacks prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		StkInitiated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_stk_push_initiated_total",
			Help: "STK push initiation attempts by outcome",
		}, []string{"outcome"}),
		CallbacksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portal_callbacks_received_total",
			Help: "Provider callbacks received",
		}),
		CallbacksApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_callbacks_applied_total",
			Help: "Callbacks that transitioned a transaction, by resulting status",
		}, []string{"status"}),
		DuplicateCallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portal_duplicate_callbacks_total",
			Help: "Callbacks ignored because the transaction was unknown or already terminal",
		}),
	}
}
