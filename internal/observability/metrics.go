// Package observability provides Prometheus metrics for the arena.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector of the process on its own registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	// Simulation
	TicksProcessed  prometheus.Counter
	OrdersExecuted  *prometheus.CounterVec
	RunsFinished    prometheus.Counter
	ProcessedIndex  prometheus.Gauge
	SessionStatus   *prometheus.GaugeVec
	TickBatchLength prometheus.Histogram

	// Persistence
	PersistDuration prometheus.Histogram
	PersistErrors   prometheus.Counter

	// History
	HistoryLoads *prometheus.CounterVec

	// Transport
	HTTPRequests  *prometheus.CounterVec
	StreamClients prometheus.Gauge
}

// NewMetrics creates and registers the collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "bot_arena"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TicksProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "ticks_processed_total",
			Help:      "Total number of simulation ticks advanced",
		}),
		OrdersExecuted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "orders_executed_total",
			Help:      "Total number of executed bot orders by side",
		}, []string{"side"}),
		RunsFinished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_finished_total",
			Help:      "Total number of runs that reached their final tick",
		}),
		ProcessedIndex: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "processed_index",
			Help:      "Tick cursor of the current run",
		}),
		SessionStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "session_status",
			Help:      "1 for the current session status, 0 otherwise",
		}, []string{"status"}),
		TickBatchLength: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "tick_batch_length",
			Help:      "Ticks advanced per driver invocation",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 64, 256, 1024},
		}),
		PersistDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "persistence",
			Name:      "save_duration_seconds",
			Help:      "Duration of session saves",
			Buckets:   prometheus.DefBuckets,
		}),
		PersistErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persistence",
			Name:      "save_errors_total",
			Help:      "Total number of failed session saves",
		}),
		HistoryLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "loads_total",
			Help:      "History loads by the source that served them",
		}, []string{"source"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		StreamClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "stream_clients",
			Help:      "Connected websocket stream clients",
		}),
	}
}

// Handler returns the /metrics handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordTicks(n int, index int) {
	if m == nil {
		return
	}
	m.TickBatchLength.Observe(float64(n))
	m.TicksProcessed.Add(float64(n))
	m.ProcessedIndex.Set(float64(index))
}

func (m *Metrics) RecordOrder(side string) {
	if m == nil {
		return
	}
	m.OrdersExecuted.WithLabelValues(side).Inc()
}

func (m *Metrics) RecordRunFinished() {
	if m == nil {
		return
	}
	m.RunsFinished.Inc()
}

// SetStatus flags status as the current one among all.
func (m *Metrics) SetStatus(status string, all ...string) {
	if m == nil {
		return
	}
	for _, s := range all {
		m.SessionStatus.WithLabelValues(s).Set(0)
	}
	m.SessionStatus.WithLabelValues(status).Set(1)
}

func (m *Metrics) RecordPersist(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(d.Seconds())
	if err != nil {
		m.PersistErrors.Inc()
	}
}

func (m *Metrics) RecordHistoryLoad(source string) {
	if m == nil {
		return
	}
	m.HistoryLoads.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordHTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (m *Metrics) StreamConnected() {
	if m != nil {
		m.StreamClients.Inc()
	}
}

func (m *Metrics) StreamDisconnected() {
	if m != nil {
		m.StreamClients.Dec()
	}
}
