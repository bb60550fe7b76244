package metricsserver

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats is a point-in-time copy of the exporter's own counters.
type Stats struct {
	ConnectionsAccepted uint64
	ResponsesServed     uint64
	AcceptErrors        uint64
	WriteErrors         uint64
	FallbackBodies      uint64
	RecoveredPanics     uint64
}

type counters struct {
	accepted     atomic.Uint64
	served       atomic.Uint64
	acceptErrors atomic.Uint64
	writeErrors  atomic.Uint64
	fallbacks    atomic.Uint64
	panics       atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		ConnectionsAccepted: c.accepted.Load(),
		ResponsesServed:     c.served.Load(),
		AcceptErrors:        c.acceptErrors.Load(),
		WriteErrors:         c.writeErrors.Load(),
		FallbackBodies:      c.fallbacks.Load(),
		RecoveredPanics:     c.panics.Load(),
	}
}

// Stats returns the current counters.
func (s *Server) Stats() Stats {
	return s.stats.snapshot()
}

// Collector exposes the server's counters as Prometheus metrics named
// <namespace>_exporter_*_total. Collect only reads atomics, so the collector
// may be registered with the same telemetry the server renders.
func (s *Server) Collector(namespace string) prometheus.Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "exporter", name), help, nil, nil)
	}
	return &statsCollector{
		server:       s,
		accepted:     desc("connections_total", "Connections accepted by the metrics endpoint."),
		served:       desc("responses_total", "Responses fully written by the metrics endpoint."),
		acceptErrors: desc("accept_errors_total", "Failed accept calls on the metrics endpoint listener."),
		writeErrors:  desc("write_errors_total", "Responses that could not be written."),
		fallbacks:    desc("fallback_bodies_total", "Responses served with the fallback body."),
		panics:       desc("recovered_panics_total", "Panics recovered while handling a connection."),
	}
}

type statsCollector struct {
	server *Server

	accepted     *prometheus.Desc
	served       *prometheus.Desc
	acceptErrors *prometheus.Desc
	writeErrors  *prometheus.Desc
	fallbacks    *prometheus.Desc
	panics       *prometheus.Desc
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.accepted
	ch <- c.served
	ch <- c.acceptErrors
	ch <- c.writeErrors
	ch <- c.fallbacks
	ch <- c.panics
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.server.Stats()
	ch <- prometheus.MustNewConstMetric(c.accepted, prometheus.CounterValue, float64(st.ConnectionsAccepted))
	ch <- prometheus.MustNewConstMetric(c.served, prometheus.CounterValue, float64(st.ResponsesServed))
	ch <- prometheus.MustNewConstMetric(c.acceptErrors, prometheus.CounterValue, float64(st.AcceptErrors))
	ch <- prometheus.MustNewConstMetric(c.writeErrors, prometheus.CounterValue, float64(st.WriteErrors))
	ch <- prometheus.MustNewConstMetric(c.fallbacks, prometheus.CounterValue, float64(st.FallbackBodies))
	ch <- prometheus.MustNewConstMetric(c.panics, prometheus.CounterValue, float64(st.RecoveredPanics))
}
