// Package metrics exposes prometheus counters for the diagram core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Commits counts outermost transaction commits by origin
	// (edit, undo, redo, rollback).
	Commits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram_commits_total",
			Help: "Total number of committed model transactions",
		},
		[]string{"origin"},
	)

	// Changes counts individual change records by kind.
	Changes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram_changes_total",
			Help: "Total number of change records applied to the model",
		},
		[]string{"change"},
	)

	// StatesInvalidated counts cached states marked invalid.
	StatesInvalidated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diagram_states_invalidated_total",
			Help: "Total number of rendered states marked invalid",
		},
	)

	// StatesRevalidated counts states recomputed, split by vertex and edge.
	StatesRevalidated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram_states_revalidated_total",
			Help: "Total number of rendered states recomputed",
		},
		[]string{"kind"},
	)

	// Clients is the number of connected collaboration clients.
	Clients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "diagram_ws_clients",
			Help: "Number of connected websocket clients",
		},
	)

	// Rooms is the number of sessions with at least one client.
	Rooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "diagram_ws_rooms",
			Help: "Number of sessions with connected clients",
		},
	)

	Messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram_ws_messages_total",
			Help: "Total number of websocket messages received by type",
		},
		[]string{"type"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diagram_http_request_duration_seconds",
			Help:    "HTTP request latency by method and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

func init() {
	prometheus.MustRegister(Commits)
	prometheus.MustRegister(Changes)
	prometheus.MustRegister(StatesInvalidated)
	prometheus.MustRegister(StatesRevalidated)
	prometheus.MustRegister(Clients)
	prometheus.MustRegister(Rooms)
	prometheus.MustRegister(Messages)
	prometheus.MustRegister(RequestDuration)
}
