package httpsvc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ims/internal/metrics"
)

const msgOrderCreated = "Order created successfully"

const (
	rejectReasonNotFound     = "product_not_found"
	rejectReasonInsufficient = "insufficient_stock"
	rejectReasonInternal     = "internal"
)

// OrderHandler обслуживает создание заказов.
type OrderHandler struct {
	repo    domain.OrderRepository
	outbox  domain.OutboxRepository
	metrics *metrics.InventoryMetrics
	logger  *log.Entry
}

// NewOrderHandler конструирует handler с зависимостями.
func NewOrderHandler(
	repo domain.OrderRepository,
	outbox domain.OutboxRepository,
	inventoryMetrics *metrics.InventoryMetrics,
	logger *log.Entry,
) *OrderHandler {
	if logger == nil {
		logger = log.New().WithField("component", "order-handler")
	}
	return &OrderHandler{
		repo:    repo,
		outbox:  outbox,
		metrics: inventoryMetrics,
		logger:  logger,
	}
}

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type createOrderRequest struct {
	CustomerID string             `json:"customerId"`
	Products   []orderItemRequest `json:"products"`
}

// Create обрабатывает POST /api/orders. Проверка остатков, вставка заказа
// и списание выполняются одной атомарной транзакцией репозитория.
func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInternalError(c)
		return
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:         uuid.NewString(),
		CustomerID: req.CustomerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	var totalQuantity int64
	for _, item := range req.Products {
		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			CreatedAt: now,
			UpdatedAt: now,
		})
		totalQuantity += item.Quantity
	}

	created, err := h.repo.Create(order)
	if err != nil {
		var notFound *domain.ProductNotFoundError
		var insufficient *domain.InsufficientStockError
		switch {
		case errors.As(err, &notFound):
			h.recordRejected(rejectReasonNotFound)
			respondFailed(c, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", notFound.ProductID))
		case errors.As(err, &insufficient):
			h.recordRejected(rejectReasonInsufficient)
			respondFailed(c, http.StatusBadRequest, fmt.Sprintf("Insufficient stock for product ID %s", insufficient.ProductID))
		default:
			h.recordRejected(rejectReasonInternal)
			h.logger.WithError(err).Error("failed to create order")
			respondInternalError(c)
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordOrderCreated()
		h.metrics.RecordUnitsSold(totalQuantity)
	}
	h.enqueueOrderCreated(created)

	respondSuccess(c, http.StatusCreated, msgOrderCreated, toOrderResponse(created))
}

func (h *OrderHandler) recordRejected(reason string) {
	if h.metrics != nil {
		h.metrics.RecordOrderRejected(reason)
	}
}

// enqueueOrderCreated кладёт событие в outbox уже после коммита заказа.
// Сбой очереди не откатывает заказ и не влияет на ответ.
func (h *OrderHandler) enqueueOrderCreated(order domain.Order) {
	if h.outbox == nil {
		return
	}

	event := kafka.NewOrderEvent(kafka.EventTypeOrderCreated, order.ID, order.CustomerID, map[string]interface{}{
		"item_count": len(order.Items),
	})
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to marshal order event")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: kafka.AggregateOrder,
		AggregateID:   order.ID,
		EventType:     string(kafka.EventTypeOrderCreated),
		Payload:       payload,
	}
	if _, err := h.outbox.Enqueue(msg); err != nil {
		h.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to enqueue order event")
	}
}
