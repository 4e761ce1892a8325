package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Product события
	EventTypeProductCreated   EventType = "product.created"
	EventTypeProductUpdated   EventType = "product.updated"
	EventTypeProductDeleted   EventType = "product.deleted"
	EventTypeProductRestocked EventType = "product.restocked"
	EventTypeProductSold      EventType = "product.sold"

	// Order события
	EventTypeOrderCreated EventType = "order.created"
)

// Topics для Kafka
const (
	TopicProductEvents   = "ims.product.events"
	TopicOrderEvents     = "ims.order.events"
	TopicDeadLetterQueue = "ims.dlq" // Dead Letter Queue для failed messages
)

// Aggregate типы, соответствующие топикам.
const (
	AggregateProduct = "product"
	AggregateOrder   = "order"
)

// ProductEvent представляет событие по товару
type ProductEvent struct {
	EventType EventType              `json:"event_type"`
	ProductID string                 `json:"product_id"`
	Stock     int64                  `json:"stock"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType  EventType              `json:"event_type"`
	OrderID    string                 `json:"order_id"`
	CustomerID string                 `json:"customer_id"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewProductEvent создает новое событие по товару
func NewProductEvent(eventType EventType, productID string, stock int64, metadata map[string]interface{}) *ProductEvent {
	return &ProductEvent{
		EventType: eventType,
		ProductID: productID,
		Stock:     stock,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, customerID string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		CustomerID: customerID,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}
