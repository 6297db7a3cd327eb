// Registers:
//
//	#ingestflow_events_ingested_total
//	#ingestflow_events_dropped_total
//	#ingestflow_bus_published_total
//	#ingestflow_subscriber_dropped_total
//	#go_* and process_* system metrics
//
// The registry is exposed through the ops server's /metrics endpoint.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once              sync.Once
	registry          *prometheus.Registry
	eventsIngested    *prometheus.CounterVec
	eventsDropped     *prometheus.CounterVec
	busPublished      prometheus.Counter
	subscriberDropped prometheus.Counter
)

func Init() {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		eventsIngested = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingestflow_events_ingested_total",
				Help: "Number of normalized events emitted by venue adapters",
			},
			[]string{"venue"},
		)

		eventsDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingestflow_events_dropped_total",
				Help: "Number of events dropped because no receiver was keeping up",
			},
			[]string{"venue"},
		)

		busPublished = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ingestflow_bus_published_total",
				Help: "Number of events published to the process event bus",
			},
		)

		subscriberDropped = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ingestflow_subscriber_dropped_total",
				Help: "Number of events lost by lagging bus subscriptions",
			},
		)

		registry.MustRegister(eventsIngested, eventsDropped, busPublished, subscriberDropped)
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler exposes the registry for the ops HTTP surface. Init must have been
// called; a nil registry falls back to an empty handler.
func Handler() http.Handler {
	if registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// IncrementIngested increases the ingest counter for a venue.
func IncrementIngested(venue string) {
	if eventsIngested != nil {
		eventsIngested.WithLabelValues(venue).Inc()
	}
}

// IncrementDropped increases the drop counter for a venue.
func IncrementDropped(venue string) {
	if eventsDropped != nil {
		eventsDropped.WithLabelValues(venue).Inc()
	}
}

// IncrementBusPublished counts one event handed to the bus.
func IncrementBusPublished() {
	if busPublished != nil {
		busPublished.Inc()
	}
}

// AddSubscriberDropped records events lost by a lagging subscription.
func AddSubscriberDropped(n uint64) {
	if subscriberDropped != nil && n > 0 {
		subscriberDropped.Add(float64(n))
	}
}
