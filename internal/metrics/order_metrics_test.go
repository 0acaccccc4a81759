package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestOrderMetrics_Record(t *testing.T) {
	m := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordOrderCreated(2, 7)
	m.RecordOrderCreated(1, 1)
	m.RecordOrderFailed("insufficient_stock")
	m.RecordOrderFailed("insufficient_stock")
	m.RecordCreateDuration(10 * time.Millisecond)
	m.RecordStockConflict()
	m.RecordStockRetry()
	m.RecordOutboxEnqueued()
	m.InFlightStarted()
	m.InFlightStarted()
	m.InFlightFinished()

	require.Equal(t, 2.0, counterValue(t, m.ordersCreated))
	require.Equal(t, 8.0, counterValue(t, m.unitsReserved))
	require.Equal(t, uint64(2), histogramCount(t, m.itemsPerOrder))
	require.Equal(t, 2.0, counterValue(t, m.orderFailures.WithLabelValues("insufficient_stock")))
	require.Equal(t, uint64(1), histogramCount(t, m.createDuration))
	require.Equal(t, 1.0, counterValue(t, m.stockConflicts))
	require.Equal(t, 1.0, counterValue(t, m.stockRetries))
	require.Equal(t, 1.0, counterValue(t, m.outboxEnqueued))
	require.Equal(t, 1.0, gaugeValue(t, m.inFlight))
}

func TestOrderMetrics_ReuseRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := NewOrderMetricsWithRegisterer(registry)
	second := NewOrderMetricsWithRegisterer(registry)

	first.RecordStockConflict()
	require.Equal(t, 1.0, counterValue(t, second.stockConflicts))
}

func TestOrderMetrics_NilSafe(t *testing.T) {
	var m *OrderMetrics
	require.NotPanics(t, func() {
		m.RecordOrderCreated(1, 1)
		m.RecordOrderFailed("x")
		m.RecordCreateDuration(time.Second)
		m.InFlightStarted()
		m.InFlightFinished()
		m.RecordStockConflict()
		m.RecordStockRetry()
		m.RecordOutboxEnqueued()
	})
}
