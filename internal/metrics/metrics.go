// Package metrics holds the client's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carpool_client"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	bootstrapRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "bootstrap_runs_total",
			Help:      "Bootstrap sequences executed, by outcome.",
		},
		[]string{"outcome"},
	)

	redirects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "navigation",
			Name:      "redirects_total",
			Help:      "Forced redirects, by reason.",
		},
		[]string{"reason"},
	)

	logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts, by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	realtimeConnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connects_total",
			Help:      "Realtime connection attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	realtimeMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "messages_total",
			Help:      "Notification messages delivered to the session.",
		},
	)

	workerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "events_total",
			Help:      "Worker lifecycle events (install, activate, reload, ...).",
		},
		[]string{"event"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "cache_lookups_total",
			Help:      "Worker cache lookups, by strategy and result.",
		},
		[]string{"strategy", "result"},
	)
)

func init() {
	Registry.MustRegister(
		bootstrapRuns,
		redirects,
		logins,
		realtimeConnects,
		realtimeMessages,
		workerEvents,
		cacheLookups,
	)
}

// Handler exposes the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordBootstrap(outcome string) {
	bootstrapRuns.WithLabelValues(outcome).Inc()
}

func RecordRedirect(reason string) {
	redirects.WithLabelValues(reason).Inc()
}

func RecordLogin(method, outcome string) {
	logins.WithLabelValues(method, outcome).Inc()
}

func RecordRealtimeConnect(outcome string) {
	realtimeConnects.WithLabelValues(outcome).Inc()
}

func RecordRealtimeMessage() {
	realtimeMessages.Inc()
}

func RecordWorkerEvent(event string) {
	workerEvents.WithLabelValues(event).Inc()
}

func RecordCacheLookup(strategy, result string) {
	cacheLookups.WithLabelValues(strategy, result).Inc()
}
