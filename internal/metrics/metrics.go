// Package metrics exposes Prometheus collectors for certificate notifications.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certifyapp/certnotify/internal/model"
)

// Metrics holds the service collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	notifications *prometheus.CounterVec
	sendDuration  *prometheus.HistogramVec
	inFlight      prometheus.Gauge
	rejected      prometheus.Counter
	events        *prometheus.CounterVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certnotify_notifications_total",
				Help: "Certificate changes handled, by outcome",
			},
			[]string{"outcome", "status"},
		),
		sendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "certnotify_send_duration_seconds",
				Help: "Duration of mail provider calls",
				Buckets: []float64{
					0.05,
					0.1,
					0.25,
					0.5,
					1,
					2.5,
					5,
					10,
				},
			},
			[]string{"provider"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "certnotify_events_in_flight",
				Help: "Events currently being processed",
			},
		),
		rejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "certnotify_events_rejected_total",
				Help: "Events turned away because the concurrency cap was reached",
			},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certnotify_events_total",
				Help: "Events received, by decode result",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		m.notifications,
		m.sendDuration,
		m.inFlight,
		m.rejected,
		m.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveResult counts one handled certificate change
func (m *Metrics) ObserveResult(result model.DeliveryResult) {
	m.notifications.WithLabelValues(string(result.Outcome), string(result.Status)).Inc()
}

// ObserveSend records how long a provider call took
func (m *Metrics) ObserveSend(provider string, d time.Duration) {
	m.sendDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// IncEvent counts a received event by decode result: accepted, ignored or malformed
func (m *Metrics) IncEvent(result string) {
	m.events.WithLabelValues(result).Inc()
}

// IncRejected counts an event turned away by admission control
func (m *Metrics) IncRejected() {
	m.rejected.Inc()
}

// InFlight returns the in-flight gauge
func (m *Metrics) InFlight() prometheus.Gauge {
	return m.inFlight
}

// Handler returns an HTTP handler that exposes the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
