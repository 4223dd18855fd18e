package metrics

import "github.com/prometheus/client_golang/prometheus"

// ParloMetrics is Parlo's Prometheus collector set: per-connection
// counters and gauges a listener registers once. A Listener configured
// with it records connections opened and closed and connection-loss
// errors; netclient does not update it, so the traffic and RTT
// collectors change only through direct RecordSent/RecordReceived/
// RecordRTT calls.
type ParloMetrics struct {
	ActiveConnections prometheus.Gauge
	ConnectionsTotal  *prometheus.CounterVec
	BytesSent         prometheus.Counter
	BytesReceived     prometheus.Counter
	PacketsTotal      *prometheus.CounterVec
	Errors            *prometheus.CounterVec
	HeartbeatRTT      prometheus.Gauge
}

// NewParloMetrics creates and registers the collector set against registry.
func NewParloMetrics(registry *prometheus.Registry) *ParloMetrics {
	m := &ParloMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parlo",
			Name:      "active_connections",
			Help:      "Number of currently active connections",
		}),
		ConnectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parlo",
			Name:      "connections_total",
			Help:      "Total connections accepted or dialed",
		}, []string{"status"}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parlo",
			Name:      "bytes_sent_total",
			Help:      "Total bytes written to the wire",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parlo",
			Name:      "bytes_received_total",
			Help:      "Total bytes read from the wire",
		}),
		PacketsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parlo",
			Name:      "packets_total",
			Help:      "Total packets processed by direction",
		}, []string{"direction"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parlo",
			Name:      "errors_total",
			Help:      "Total errors by kind",
		}, []string{"kind"}),
		HeartbeatRTT: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parlo",
			Name:      "heartbeat_rtt_seconds",
			Help:      "Most recently measured heartbeat round-trip time",
		}),
	}

	registry.MustRegister(
		m.ActiveConnections,
		m.ConnectionsTotal,
		m.BytesSent,
		m.BytesReceived,
		m.PacketsTotal,
		m.Errors,
		m.HeartbeatRTT,
	)

	return m
}

// RecordConnectionOpened updates connection-count gauges/counters.
func (m *ParloMetrics) RecordConnectionOpened() {
	m.ActiveConnections.Inc()
	m.ConnectionsTotal.WithLabelValues("opened").Inc()
}

// RecordConnectionClosed updates connection-count gauges/counters.
func (m *ParloMetrics) RecordConnectionClosed() {
	m.ActiveConnections.Dec()
	m.ConnectionsTotal.WithLabelValues("closed").Inc()
}

// RecordSent records an outbound frame of n bytes.
func (m *ParloMetrics) RecordSent(n int) {
	m.BytesSent.Add(float64(n))
	m.PacketsTotal.WithLabelValues("sent").Inc()
}

// RecordReceived records an inbound frame of n bytes.
func (m *ParloMetrics) RecordReceived(n int) {
	m.BytesReceived.Add(float64(n))
	m.PacketsTotal.WithLabelValues("received").Inc()
}

// RecordError increments the error counter for kind.
func (m *ParloMetrics) RecordError(kind string) {
	m.Errors.WithLabelValues(kind).Inc()
}

// RecordRTT updates the most recent heartbeat RTT gauge.
func (m *ParloMetrics) RecordRTT(seconds float64) {
	m.HeartbeatRTT.Set(seconds)
}
