// Package metrics exposes the pipeline's operational counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the instruments updated by the ingestion pipeline and the
// fan-out hub. All instruments are registered on the registry passed to New,
// so tests can use isolated registries.
type Metrics struct {
	SamplesIngested    prometheus.Counter
	SamplesRejected    prometheus.Counter
	AlertsRaised       *prometheus.CounterVec
	EventsBroadcast    prometheus.Counter
	Subscribers        prometheus.Gauge
	SubscribersDropped prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SamplesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "occupancy_samples_ingested_total",
			Help: "Occupancy samples accepted by the ingestion endpoint.",
		}),
		SamplesRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "occupancy_samples_rejected_total",
			Help: "Occupancy samples rejected before any store mutation.",
		}),
		AlertsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "occupancy_alerts_raised_total",
			Help: "Alerts raised by the occupancy state machine.",
		}, []string{"severity"}),
		EventsBroadcast: factory.NewCounter(prometheus.CounterOpts{
			Name: "fanout_events_broadcast_total",
			Help: "Events handed to the fan-out hub for delivery.",
		}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fanout_subscribers",
			Help: "Currently connected websocket subscribers.",
		}),
		SubscribersDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "fanout_subscribers_dropped_total",
			Help: "Subscribers dropped because of send failures or full buffers.",
		}),
	}
}
