package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InventoryMetrics содержит метрики товарных и заказных операций.
type InventoryMetrics struct {
	// Счётчики операций
	productsCreated prometheus.Counter
	productsUpdated prometheus.Counter
	productsDeleted prometheus.Counter
	ordersCreated   prometheus.Counter
	ordersRejected  *prometheus.CounterVec

	// Счётчики движения остатков
	unitsRestocked prometheus.Counter
	unitsSold      prometheus.Counter

	// Гистограмма времени обработки HTTP-запросов
	httpRequestDuration *prometheus.HistogramVec
}

// NewInventoryMetrics создаёт новый экземпляр метрик сервиса.
func NewInventoryMetrics() *InventoryMetrics {
	return newInventoryMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newInventoryMetricsWithRegisterer(registerer prometheus.Registerer) *InventoryMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &InventoryMetrics{
		productsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_products_created_total",
			Help: "Total number of products created",
		}),
		productsUpdated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_products_updated_total",
			Help: "Total number of products updated",
		}),
		productsDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_products_deleted_total",
			Help: "Total number of products deleted",
		}),
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_orders_created_total",
			Help: "Total number of orders created successfully",
		}),
		ordersRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ims_orders_rejected_total",
			Help: "Total number of orders rejected grouped by reason",
		}, []string{"reason"}),
		unitsRestocked: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_stock_units_restocked_total",
			Help: "Total number of stock units added via restock",
		}),
		unitsSold: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_stock_units_sold_total",
			Help: "Total number of stock units removed via sell and orders",
		}),
		httpRequestDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "ims_http_request_duration_seconds",
			Help:    "Duration of HTTP request handling in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"route", "method", "status"}),
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

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordProductCreated увеличивает счётчик созданных товаров.
func (m *InventoryMetrics) RecordProductCreated() {
	m.productsCreated.Inc()
}

// RecordProductUpdated увеличивает счётчик обновлённых товаров.
func (m *InventoryMetrics) RecordProductUpdated() {
	m.productsUpdated.Inc()
}

// RecordProductDeleted увеличивает счётчик удалённых товаров.
func (m *InventoryMetrics) RecordProductDeleted() {
	m.productsDeleted.Inc()
}

// RecordOrderCreated увеличивает счётчик успешно созданных заказов.
func (m *InventoryMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderRejected увеличивает счётчик отклонённых заказов по причине.
func (m *InventoryMetrics) RecordOrderRejected(reason string) {
	m.ordersRejected.WithLabelValues(reason).Inc()
}

// RecordUnitsRestocked учитывает пополнение остатков.
func (m *InventoryMetrics) RecordUnitsRestocked(amount int64) {
	if amount <= 0 {
		return
	}
	m.unitsRestocked.Add(float64(amount))
}

// RecordUnitsSold учитывает списание остатков продажей или заказом.
func (m *InventoryMetrics) RecordUnitsSold(quantity int64) {
	if quantity <= 0 {
		return
	}
	m.unitsSold.Add(float64(quantity))
}

// ObserveHTTPRequest записывает длительность обработки HTTP-запроса.
func (m *InventoryMetrics) ObserveHTTPRequest(route, method, status string, duration time.Duration) {
	m.httpRequestDuration.WithLabelValues(route, method, status).Observe(duration.Seconds())
}
