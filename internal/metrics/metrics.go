package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus collectors for the display daemon.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	rotationsTotal  prometheus.Counter
	fetchFailures   *prometheus.CounterVec
	powerCommands   *prometheus.CounterVec
	droppedEvents   prometheus.Counter
	httpRequests    *prometheus.CounterVec
	nowPlaying      prometheus.Gauge
	connectedClient prometheus.Gauge
	catalogSize     prometheus.Gauge
}

// New creates and registers the collectors on a private registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		rotationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nowshowing_rotations_total",
			Help: "Total number of poster transitions",
		}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nowshowing_fetch_failures_total",
			Help: "Failed calls to the backend or Plex, by operation",
		}, []string{"op"}),
		powerCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nowshowing_power_commands_total",
			Help: "Power commands sent to the display, by command",
		}, []string{"command"}),
		droppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nowshowing_dropped_events_total",
			Help: "Presentation events dropped because a client was too slow",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nowshowing_http_requests_total",
			Help: "HTTP requests served, by status class",
		}, []string{"class"}),
		nowPlaying: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nowshowing_now_playing",
			Help: "1 while the Plex now-playing override is active",
		}),
		connectedClient: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nowshowing_presentation_clients",
			Help: "Connected presentation websocket clients",
		}),
		catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nowshowing_catalog_size",
			Help: "Posters in the active rotation catalog",
		}),
	}

	registry.MustRegister(
		m.rotationsTotal,
		m.fetchFailures,
		m.powerCommands,
		m.droppedEvents,
		m.httpRequests,
		m.nowPlaying,
		m.connectedClient,
		m.catalogSize,
	)

	return m
}

func (m *Metrics) IncRotations() {
	if m != nil {
		m.rotationsTotal.Inc()
	}
}

func (m *Metrics) IncFetchFailure(op string) {
	if m != nil {
		m.fetchFailures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) IncPowerCommand(cmd string) {
	if m != nil {
		m.powerCommands.WithLabelValues(cmd).Inc()
	}
}

func (m *Metrics) IncDroppedEvents() {
	if m != nil {
		m.droppedEvents.Inc()
	}
}

func (m *Metrics) SetNowPlaying(active bool) {
	if m == nil {
		return
	}
	if active {
		m.nowPlaying.Set(1)
	} else {
		m.nowPlaying.Set(0)
	}
}

func (m *Metrics) SetClients(n int) {
	if m != nil {
		m.connectedClient.Set(float64(n))
	}
}

func (m *Metrics) SetCatalogSize(n int) {
	if m != nil {
		m.catalogSize.Set(float64(n))
	}
}

// Handler returns an http.Handler that serves the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
