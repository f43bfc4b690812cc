package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the instruments the server updates while running. They
// are registered eagerly; whether anything scrapes them depends on the
// metrics listener being configured.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	ConnectedUsers    prometheus.Gauge
	Commands          *prometheus.CounterVec
	UserErrors        *prometheus.CounterVec
	ClientErrors      *prometheus.CounterVec
	HandsCompleted    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "felt",
			Name:      "active_connections",
			Help:      "Open client connections.",
		}),
		ConnectedUsers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "felt",
			Name:      "connected_users",
			Help:      "Users who completed the handshake and hold a seat, waitlist spot or spectator slot.",
		}),
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "felt",
			Name:      "commands_total",
			Help:      "Client commands dispatched to the table, by type.",
		}, []string{"type"}),
		UserErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "felt",
			Name:      "user_errors_total",
			Help:      "Commands the table rejected, by kind.",
		}, []string{"kind"}),
		ClientErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "felt",
			Name:      "client_errors_total",
			Help:      "Connections evicted with a protocol error, by kind.",
		}, []string{"kind"}),
		HandsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "felt",
			Name:      "hands_completed_total",
			Help:      "Hands played through to the lobby.",
		}),
	}
}
