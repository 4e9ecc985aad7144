// Package metrics exposes Prometheus instruments for a configurator session.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	MessagesTotal    *prometheus.CounterVec
	RequestFailures  *prometheus.CounterVec
	DiagnosticsTotal *prometheus.CounterVec
	ConnectionState  prometheus.Gauge
	LogEntries       prometheus.Gauge
}

// New registers the session instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "configurator_inbound_messages_total",
			Help: "Inbound device messages by classification",
		}, []string{"kind"}),
		RequestFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "configurator_request_failures_total",
			Help: "Failed device API requests by operation",
		}, []string{"op"}),
		DiagnosticsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "configurator_diagnostics_total",
			Help: "Rejected local actions by reason",
		}, []string{"reason"}),
		ConnectionState: f.NewGauge(prometheus.GaugeOpts{
			Name: "configurator_connection_state",
			Help: "0 disconnected, 1 connecting, 2 connected",
		}),
		LogEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "configurator_log_entries",
			Help: "Entries held in the session log",
		}),
	}
}

func (m *Metrics) RecordMessage(kind string) {
	if m == nil || m.MessagesTotal == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordRequestFailure(op string) {
	if m == nil || m.RequestFailures == nil {
		return
	}
	m.RequestFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordDiagnostic(reason string) {
	if m == nil || m.DiagnosticsTotal == nil {
		return
	}
	m.DiagnosticsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetConnectionState(state int) {
	if m == nil || m.ConnectionState == nil {
		return
	}
	m.ConnectionState.Set(float64(state))
}

func (m *Metrics) SetLogEntries(n int) {
	if m == nil || m.LogEntries == nil {
		return
	}
	m.LogEntries.Set(float64(n))
}
