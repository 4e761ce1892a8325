package httpsvc

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ims/internal/metrics"
)

const (
	msgProductCreated   = "Product created successfully"
	msgProductsFetched  = "Products fetched successfully"
	msgProductFetched   = "Product fetched successfully"
	msgProductUpdated   = "Product updated successfully"
	msgProductDeleted   = "Product deleted successfully"
	msgProductRestocked = "Product restocked successfully"
	msgProductSold      = "Product sold successfully"

	msgProductExists    = "Product already exists"
	msgProductNameTaken = "Product name already exists"
	msgNoChanges        = "No changes to update"
	msgProductNotFound  = "Product not found"
	msgInsufficient     = "Insufficient stock"
	msgInvalidAmount    = "Stock amount must be non-negative"
)

// EventPublisher публикует доменные события во внешний брокер.
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// ProductHandler обслуживает CRUD и складские операции над товарами.
type ProductHandler struct {
	repo    domain.ProductRepository
	metrics *metrics.InventoryMetrics
	events  EventPublisher
	logger  *log.Entry
}

// NewProductHandler конструирует handler с зависимостями.
func NewProductHandler(
	repo domain.ProductRepository,
	inventoryMetrics *metrics.InventoryMetrics,
	events EventPublisher,
	logger *log.Entry,
) *ProductHandler {
	if logger == nil {
		logger = log.New().WithField("component", "product-handler")
	}
	return &ProductHandler{
		repo:    repo,
		metrics: inventoryMetrics,
		events:  events,
		logger:  logger,
	}
}

type createProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int64   `json:"stock"`
}

type updateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Stock       *int64   `json:"stock"`
}

type restockRequest struct {
	Stock int64 `json:"stock"`
}

type sellRequest struct {
	Quantity int64 `json:"quantity"`
}

// Create обрабатывает POST /api/products.
func (h *ProductHandler) Create(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInternalError(c)
		return
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.repo.Create(product); err != nil {
		if errors.Is(err, domain.ErrProductExists) {
			respondFailed(c, http.StatusBadRequest, msgProductExists)
			return
		}
		h.logger.WithError(err).Error("failed to create product")
		respondInternalError(c)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordProductCreated()
	}
	h.publishProductEvent(kafka.EventTypeProductCreated, product, nil)

	respondSuccess(c, http.StatusCreated, msgProductCreated, toProductResponse(product))
}

// List обрабатывает GET /api/products.
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.repo.GetAll()
	if err != nil {
		h.logger.WithError(err).Error("failed to list products")
		respondInternalError(c)
		return
	}

	respondSuccess(c, http.StatusOK, msgProductsFetched, toProductResponses(products))
}

// GetByID обрабатывает GET /api/products/:id.
func (h *ProductHandler) GetByID(c *gin.Context) {
	product, err := h.repo.Get(c.Param("id"))
	if err != nil {
		if domain.IsNotFound(err) {
			respondFailed(c, http.StatusNotFound, msgProductNotFound)
			return
		}
		h.logger.WithError(err).Error("failed to get product")
		respondInternalError(c)
		return
	}

	respondSuccess(c, http.StatusOK, msgProductFetched, toProductResponse(product))
}

// Update обрабатывает PUT /api/products/:id.
func (h *ProductHandler) Update(c *gin.Context) {
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInternalError(c)
		return
	}

	changes := domain.ProductChanges{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	}

	product, err := h.repo.Update(c.Param("id"), changes)
	if err != nil {
		switch {
		case domain.IsNotFound(err):
			respondFailed(c, http.StatusNotFound, msgProductNotFound)
		case errors.Is(err, domain.ErrProductNameTaken):
			respondFailed(c, http.StatusBadRequest, msgProductNameTaken)
		case errors.Is(err, domain.ErrNoChanges):
			respondFailed(c, http.StatusBadRequest, msgNoChanges)
		default:
			h.logger.WithError(err).Error("failed to update product")
			respondInternalError(c)
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordProductUpdated()
	}
	h.publishProductEvent(kafka.EventTypeProductUpdated, product, nil)

	respondSuccess(c, http.StatusOK, msgProductUpdated, toProductResponse(product))
}

// Delete обрабатывает DELETE /api/products/:id.
func (h *ProductHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.repo.Delete(id); err != nil {
		if domain.IsNotFound(err) {
			respondFailed(c, http.StatusNotFound, msgProductNotFound)
			return
		}
		h.logger.WithError(err).Error("failed to delete product")
		respondInternalError(c)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordProductDeleted()
	}
	h.publishProductEvent(kafka.EventTypeProductDeleted, domain.Product{ID: id}, nil)

	respondSuccess(c, http.StatusOK, msgProductDeleted, nil)
}

// Restock обрабатывает POST /api/products/:id/restock.
func (h *ProductHandler) Restock(c *gin.Context) {
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInternalError(c)
		return
	}

	product, err := h.repo.IncrementStock(c.Param("id"), req.Stock)
	if err != nil {
		switch {
		case domain.IsNotFound(err):
			respondFailed(c, http.StatusNotFound, msgProductNotFound)
		case errors.Is(err, domain.ErrStockAmountInvalid):
			respondFailed(c, http.StatusBadRequest, msgInvalidAmount)
		default:
			h.logger.WithError(err).Error("failed to restock product")
			respondInternalError(c)
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordUnitsRestocked(req.Stock)
	}
	h.publishProductEvent(kafka.EventTypeProductRestocked, product, map[string]interface{}{
		"amount": req.Stock,
	})

	respondSuccess(c, http.StatusOK, msgProductRestocked, toProductResponse(product))
}

// Sell обрабатывает POST /api/products/:id/sell.
func (h *ProductHandler) Sell(c *gin.Context) {
	var req sellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInternalError(c)
		return
	}

	product, err := h.repo.DecrementStock(c.Param("id"), req.Quantity)
	if err != nil {
		switch {
		case domain.IsNotFound(err):
			respondFailed(c, http.StatusNotFound, msgProductNotFound)
		case errors.Is(err, domain.ErrInsufficientStock):
			respondFailed(c, http.StatusBadRequest, msgInsufficient)
		case errors.Is(err, domain.ErrStockAmountInvalid):
			respondFailed(c, http.StatusBadRequest, msgInvalidAmount)
		default:
			h.logger.WithError(err).Error("failed to sell product")
			respondInternalError(c)
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordUnitsSold(req.Quantity)
	}
	h.publishProductEvent(kafka.EventTypeProductSold, product, map[string]interface{}{
		"quantity": req.Quantity,
	})

	respondSuccess(c, http.StatusOK, msgProductSold, toProductResponse(product))
}

// publishProductEvent отправляет событие best-effort: ошибка брокера
// не влияет на ответ клиенту.
func (h *ProductHandler) publishProductEvent(eventType kafka.EventType, product domain.Product, metadata map[string]interface{}) {
	if h.events == nil {
		return
	}

	event := kafka.NewProductEvent(eventType, product.ID, product.Stock, metadata)
	if err := h.events.PublishEvent(kafka.TopicProductEvents, product.ID, event); err != nil {
		h.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"product_id": product.ID,
		}).Warn("failed to publish product event")
	}
}
