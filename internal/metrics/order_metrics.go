package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики создания заказов и работы с остатками.
// Методы безопасно вызывать на nil.
type OrderMetrics struct {
	ordersCreated  prometheus.Counter
	orderFailures  *prometheus.CounterVec
	createDuration prometheus.Histogram
	itemsPerOrder  prometheus.Histogram
	unitsReserved  prometheus.Counter
	inFlight       prometheus.Gauge

	stockConflicts prometheus.Counter
	stockRetries   prometheus.Counter

	outboxEnqueued prometheus.Counter
}

// NewOrderMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer регистрирует метрики в указанном registerer.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_orders_created_total",
			Help: "Total number of orders created",
		}),
		orderFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_order_failures_total",
			Help: "Total number of rejected order creations by reason",
		}, []string{"reason"}),
		createDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "shop_order_create_duration_seconds",
			Help:    "Duration of order creation including retries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		itemsPerOrder: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "shop_order_items",
			Help:    "Number of distinct products per created order",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		}),
		unitsReserved: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_stock_units_decremented_total",
			Help: "Total number of stock units taken by created orders",
		}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "shop_orders_in_flight",
			Help: "Number of order creations currently in progress",
		}),
		stockConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_stock_conflicts_total",
			Help: "Total number of concurrent stock update conflicts",
		}),
		stockRetries: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_stock_retries_total",
			Help: "Total number of order creation retries after a stock conflict",
		}),
		outboxEnqueued: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_outbox_events_enqueued_total",
			Help: "Total number of domain events written to the outbox",
		}),
	}
}

// RecordOrderCreated фиксирует успешно созданный заказ.
func (m *OrderMetrics) RecordOrderCreated(items int, units int64) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.itemsPerOrder.Observe(float64(items))
	m.unitsReserved.Add(float64(units))
}

// RecordOrderFailed фиксирует отказ с кодом причины.
func (m *OrderMetrics) RecordOrderFailed(reason string) {
	if m == nil {
		return
	}
	m.orderFailures.WithLabelValues(reason).Inc()
}

// RecordCreateDuration записывает время создания заказа.
func (m *OrderMetrics) RecordCreateDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.createDuration.Observe(d.Seconds())
}

// InFlightStarted увеличивает число заказов в обработке.
func (m *OrderMetrics) InFlightStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// InFlightFinished уменьшает число заказов в обработке.
func (m *OrderMetrics) InFlightFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

// RecordStockConflict фиксирует конфликт конкурентного обновления остатка.
func (m *OrderMetrics) RecordStockConflict() {
	if m == nil {
		return
	}
	m.stockConflicts.Inc()
}

// RecordStockRetry фиксирует повтор после конфликта.
func (m *OrderMetrics) RecordStockRetry() {
	if m == nil {
		return
	}
	m.stockRetries.Inc()
}

// RecordOutboxEnqueued фиксирует событие, записанное в outbox.
func (m *OrderMetrics) RecordOutboxEnqueued() {
	if m == nil {
		return
	}
	m.outboxEnqueued.Inc()
}
