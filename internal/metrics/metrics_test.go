package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordMessage("log")
	m.RecordMessage("log")
	m.RecordRequestFailure("fetch_config")
	m.RecordDiagnostic("network_disabled")
	m.SetConnectionState(2)
	m.SetLogEntries(5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues("log")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestFailures.WithLabelValues("fetch_config")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiagnosticsTotal.WithLabelValues("network_disabled")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionState))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.LogEntries))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordMessage("status")
		m.RecordRequestFailure("x")
		m.RecordDiagnostic("y")
		m.SetConnectionState(1)
		m.SetLogEntries(1)
	})
}
