package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParloMetricsRecordsConnectionLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewParloMetrics(reg)

	m.RecordConnectionOpened()
	m.RecordConnectionOpened()
	m.RecordConnectionClosed()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ActiveConnections))
}

func TestParloMetricsRecordsTraffic(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewParloMetrics(reg)

	m.RecordSent(100)
	m.RecordReceived(50)
	m.RecordError("framing")
	m.RecordRTT(0.025)

	assert.Equal(t, float64(100), testutil.ToFloat64(m.BytesSent))
	assert.Equal(t, float64(50), testutil.ToFloat64(m.BytesReceived))
	assert.Equal(t, float64(0.025), testutil.ToFloat64(m.HeartbeatRTT))

	_, err := reg.Gather()
	require.NoError(t, err)
}
