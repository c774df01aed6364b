package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics содержит метрики движка консистентности (леджер, чекаут, уведомления).
type EngineMetrics struct {
	// Счётчики операций
	ordersCommitted prometheus.Counter
	ordersFailed    prometheus.Counter
	ordersCancelled prometheus.Counter
	bulkOperations  prometheus.Counter

	// Гистограмма времени фиксации заказа
	commitDuration prometheus.Histogram

	// Уведомления по severity
	notificationsPublished *prometheus.CounterVec

	// Алерты порогов остатка
	stockAlerts *prometheus.CounterVec

	// Gauge активных уведомлений
	activeNotifications prometheus.Gauge
}

// NewEngineMetrics создаёт новый экземпляр метрик движка.
func NewEngineMetrics() *EngineMetrics {
	return newEngineMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newEngineMetricsWithRegisterer(registerer prometheus.Registerer) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &EngineMetrics{
		ordersCommitted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_orders_committed_total",
			Help: "Total number of orders committed successfully",
		}),
		ordersFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_orders_failed_total",
			Help: "Total number of order commits that failed",
		}),
		ordersCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_orders_cancelled_total",
			Help: "Total number of orders cancelled",
		}),
		bulkOperations: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_bulk_operations_total",
			Help: "Total number of bulk ledger operations applied",
		}),
		commitDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "pos_order_commit_duration_seconds",
			Help:    "Duration of order commit operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		notificationsPublished: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_notifications_published_total",
			Help: "Total number of notifications published grouped by severity",
		}, []string{"severity"}),
		stockAlerts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_stock_alerts_total",
			Help: "Total number of low-stock and depleted alerts grouped by kind",
		}, []string{"kind"}),
		activeNotifications: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "pos_active_notifications",
			Help: "Number of notifications currently visible to the cashier",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCommitted увеличивает счётчик успешно зафиксированных заказов.
func (m *EngineMetrics) RecordOrderCommitted() {
	m.ordersCommitted.Inc()
}

// RecordOrderFailed увеличивает счётчик неудачных фиксаций.
func (m *EngineMetrics) RecordOrderFailed() {
	m.ordersFailed.Inc()
}

// RecordOrderCancelled увеличивает счётчик отменённых заказов.
func (m *EngineMetrics) RecordOrderCancelled() {
	m.ordersCancelled.Inc()
}

// RecordBulkOperation увеличивает счётчик bulk-операций над леджером.
func (m *EngineMetrics) RecordBulkOperation() {
	m.bulkOperations.Inc()
}

// RecordCommitDuration записывает время фиксации заказа.
func (m *EngineMetrics) RecordCommitDuration(duration time.Duration) {
	m.commitDuration.Observe(duration.Seconds())
}

// RecordNotification увеличивает счётчик опубликованных уведомлений.
func (m *EngineMetrics) RecordNotification(severity string) {
	m.notificationsPublished.WithLabelValues(severity).Inc()
}

// RecordStockAlert увеличивает счётчик алертов остатка ("low_stock" или "depleted").
func (m *EngineMetrics) RecordStockAlert(kind string) {
	m.stockAlerts.WithLabelValues(kind).Inc()
}

// NotificationShown увеличивает количество активных уведомлений.
func (m *EngineMetrics) NotificationShown() {
	m.activeNotifications.Inc()
}

// NotificationRetracted уменьшает количество активных уведомлений.
func (m *EngineMetrics) NotificationRetracted() {
	m.activeNotifications.Dec()
}
