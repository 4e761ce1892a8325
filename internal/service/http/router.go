package httpsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/metrics"
	"github.com/vladislavdragonenkov/ims/internal/validation"
)

const msgEndpointNotFound = "Endpoint not found"

// RouterConfig задаёт зависимости HTTP-слоя.
type RouterConfig struct {
	Products domain.ProductRepository
	Orders   domain.OrderRepository
	Outbox   domain.OutboxRepository
	Events   EventPublisher
	Metrics  *metrics.InventoryMetrics
	Logger   *log.Entry
}

// NewRouter собирает gin-движок: recovery, метрики, схемная валидация
// и маршруты API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New().WithField("component", "http-router")
	}

	engine := gin.New()
	engine.Use(recoveryMiddleware(logger))
	if cfg.Metrics != nil {
		engine.Use(metricsMiddleware(cfg.Metrics))
	}
	engine.Use(validation.Middleware(validation.Default()))

	engine.NoRoute(func(c *gin.Context) {
		respondFailed(c, http.StatusNotFound, msgEndpointNotFound)
	})

	products := NewProductHandler(cfg.Products, cfg.Metrics, cfg.Events, logger.WithField("handler", "products"))
	orders := NewOrderHandler(cfg.Orders, cfg.Outbox, cfg.Metrics, logger.WithField("handler", "orders"))

	api := engine.Group("/api")
	{
		api.GET("/products", products.List)
		api.POST("/products", products.Create)
		api.GET("/products/:id", products.GetByID)
		api.PUT("/products/:id", products.Update)
		api.DELETE("/products/:id", products.Delete)
		api.POST("/products/:id/restock", products.Restock)
		api.POST("/products/:id/sell", products.Sell)
		api.POST("/orders", orders.Create)
	}

	return engine
}

// recoveryMiddleware превращает panic в стандартный 500-конверт.
func recoveryMiddleware(logger *log.Entry) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.WithField("panic", recovered).Error("panic while handling request")
		respondFailed(c, http.StatusInternalServerError, msgInternalError)
		c.Abort()
	})
}

func metricsMiddleware(inventoryMetrics *metrics.InventoryMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		inventoryMetrics.ObserveHTTPRequest(
			route,
			c.Request.Method,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}
