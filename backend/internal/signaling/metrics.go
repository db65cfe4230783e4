package signaling

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the hub's Prometheus collectors.
type Metrics struct {
	Rooms        prometheus.Gauge
	Members      prometheus.Gauge
	RoomsCreated prometheus.Counter
	Joins        *prometheus.CounterVec
	Relayed      *prometheus.CounterVec
	Dropped      prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "warpcall",
			Name:      "rooms",
			Help:      "Number of live rooms.",
		}),
		Members: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "warpcall",
			Name:      "members",
			Help:      "Number of members across all live rooms.",
		}),
		RoomsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "warpcall",
			Name:      "rooms_created_total",
			Help:      "Rooms created since start.",
		}),
		Joins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warpcall",
			Name:      "joins_total",
			Help:      "Join attempts by result.",
		}, []string{"result"}),
		Relayed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warpcall",
			Name:      "relayed_total",
			Help:      "Negotiation messages delivered to a peer, by type.",
		}, []string{"type"}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "warpcall",
			Name:      "relay_dropped_total",
			Help:      "Messages dropped because the recipient could not take them.",
		}),
	}
}
