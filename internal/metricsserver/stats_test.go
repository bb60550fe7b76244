package metricsserver

import (
	"strings"
	"testing"

	"github.com/fyrsmithlabs/metricsd/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_Snapshot(t *testing.T) {
	s := &Server{}
	s.stats.accepted.Add(4)
	s.stats.served.Add(3)
	s.stats.acceptErrors.Add(2)
	s.stats.writeErrors.Add(1)
	s.stats.fallbacks.Add(5)
	s.stats.panics.Add(6)

	assert.Equal(t, Stats{
		ConnectionsAccepted: 4,
		ResponsesServed:     3,
		AcceptErrors:        2,
		WriteErrors:         1,
		FallbackBodies:      5,
		RecoveredPanics:     6,
	}, s.Stats())
}

func TestCollector(t *testing.T) {
	s := &Server{}
	s.stats.accepted.Add(10)
	s.stats.served.Add(9)
	s.stats.writeErrors.Add(1)

	c := s.Collector("metricsd")
	assert.Equal(t, 6, testutil.CollectAndCount(c))

	expected := `
# HELP metricsd_exporter_connections_total Connections accepted by the metrics endpoint.
# TYPE metricsd_exporter_connections_total counter
metricsd_exporter_connections_total 10
# HELP metricsd_exporter_responses_total Responses fully written by the metrics endpoint.
# TYPE metricsd_exporter_responses_total counter
metricsd_exporter_responses_total 9
# HELP metricsd_exporter_write_errors_total Responses that could not be written.
# TYPE metricsd_exporter_write_errors_total counter
metricsd_exporter_write_errors_total 1
# HELP metricsd_exporter_recovered_panics_total Panics recovered while handling a connection.
# TYPE metricsd_exporter_recovered_panics_total counter
metricsd_exporter_recovered_panics_total 0
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"metricsd_exporter_connections_total",
		"metricsd_exporter_responses_total",
		"metricsd_exporter_write_errors_total",
		"metricsd_exporter_recovered_panics_total",
	))
}

func TestCollector_ReflectsLiveCounters(t *testing.T) {
	s := &Server{}
	c := s.Collector("host")

	s.stats.fallbacks.Add(1)
	assert.Contains(t, collectText(t, c), "host_exporter_fallback_bodies_total 1")

	s.stats.fallbacks.Add(2)
	assert.Contains(t, collectText(t, c), "host_exporter_fallback_bodies_total 3")
}

func TestCollector_ServedThroughOwnTelemetry(t *testing.T) {
	handle := telemetry.NewTestHandle(t)
	srv := startServer(t, handle)

	require.NoError(t, handle.Update(func(tel *telemetry.Telemetry) error {
		return tel.Register(srv.Collector(tel.Namespace()))
	}))

	scrape(t, srv.Addr().String(), httpGet())
	got := scrape(t, srv.Addr().String(), httpGet())

	// The second scrape sees the first one counted.
	assert.Contains(t, got.body, "metricsd_exporter_connections_total 2\n")
	assert.Contains(t, got.body, "metricsd_exporter_responses_total 1\n")
}

func collectText(t *testing.T, c prometheus.Collector) string {
	t.Helper()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)

	var b strings.Builder
	for _, mf := range families {
		_, err := expfmt.MetricFamilyToText(&b, mf)
		require.NoError(t, err)
	}
	return b.String()
}
