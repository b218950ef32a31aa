// Package metrics provides Prometheus instrumentation for the store and session adapter.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pay outcomes.
const (
	PayOK       = "ok"
	PayRejected = "rejected"
	PayFailed   = "failed"
)

var (
	// MessagesTotal counts store messages processed, by kind.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_messages_total",
		Help: "Messages processed by the store loop",
	}, []string{"kind"})

	MessageSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_message_seconds",
		Help:    "Time to process one store message including persistence",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"kind"})

	SaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "store_save_failures_total",
		Help: "Persistence barrier saves that failed",
	})

	PayTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_pay_total",
		Help: "Pay operations by outcome",
	}, []string{"outcome"})

	Users = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "store_users",
		Help: "Known user accounts",
	})

	Orders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "store_orders",
		Help: "Queued orders",
	})

	// SessionEvents counts game session events seen by the adapter, by kind.
	SessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_events_total",
		Help: "Game session events observed by the adapter",
	}, []string{"kind"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
