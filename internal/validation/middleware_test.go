package validation_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ims/internal/validation"
)

// newTestRouter поднимает gin-роутер с middleware и echo-обработчиками.
func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(validation.Middleware(validation.Default()))

	router.POST("/api/products", func(c *gin.Context) {
		raw, _ := io.ReadAll(c.Request.Body)
		c.Data(http.StatusOK, "application/json", raw)
	})
	router.POST("/api/products/:id/restock", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.POST("/api/orders", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	router.GET("/api/unvalidated", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_RejectsInvalidBody(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(router, http.MethodPost, "/api/products", `{"description":"d","price":1,"stock":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    any    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "failed", resp.Status)
	require.Equal(t, "Name is required", resp.Message)
	require.Nil(t, resp.Data)
}

func TestMiddleware_NormalizesMessage(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(router, http.MethodPost, "/api/products", `{"name":5,"description":"d","price":1,"stock":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	// Кавычки убраны, первая буква заглавная.
	require.Contains(t, rec.Body.String(), "Name must be a string")
}

func TestMiddleware_CustomMessages(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(router, http.MethodPost, "/api/products/abc/restock", `{"stock":"many"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "Stock must be a number")

	rec = doRequest(router, http.MethodPost, "/api/products/abc/restock", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "Stock is required")
}

func TestMiddleware_ReplacesBodyWithCoercedValues(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(router, http.MethodPost, "/api/products",
		`{"name":"Widget","description":"A widget","price":10,"stock":5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Обработчик получил уже нормализованный JSON.
	var echoed struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
		Stock int64   `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &echoed))
	require.Equal(t, "Widget", echoed.Name)
	require.Equal(t, float64(10), echoed.Price)
	require.Equal(t, int64(5), echoed.Stock)
}

func TestMiddleware_RejectsUnknownKeys(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(router, http.MethodPost, "/api/products",
		`{"name":"Widget","description":"d","price":1,"stock":1,"color":"red"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "Color is not allowed")
}

func TestMiddleware_MalformedJSON(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(router, http.MethodPost, "/api/products", `{"name":`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid request body")
}

func TestMiddleware_BodyErrorTakesPrecedenceOverParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	registry := validation.NewRegistry()
	registry.Register("/api/widgets/:id", validation.MethodPost, validation.Entry{
		Params: validation.NewSchema(validation.String("id").Required().GUID()),
		Body:   validation.NewSchema(validation.Integer("stock").Required()),
	})

	router := gin.New()
	router.Use(validation.Middleware(registry))
	router.POST("/api/widgets/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Невалидны и параметр, и тело: первым сообщается о теле
	rec := doRequest(router, http.MethodPost, "/api/widgets/not-a-guid", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "Stock is required")

	// С валидным телом всплывает ошибка параметра
	rec = doRequest(router, http.MethodPost, "/api/widgets/not-a-guid", `{"stock":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "must be a valid GUID")
}

func TestMiddleware_PassThroughForUnknownRoute(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(router, http.MethodGet, "/api/unvalidated", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_OrderSchema(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(router, http.MethodPost, "/api/orders",
		`{"customerId":"not-a-guid","products":[{"productId":"p1","quantity":1}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "CustomerId must be a valid GUID")

	rec = doRequest(router, http.MethodPost, "/api/orders",
		`{"customerId":"b4e4e3c2-9d6a-4c8e-9a51-1fbd32c229e1","products":[]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "Products must contain at least 1 items")

	rec = doRequest(router, http.MethodPost, "/api/orders",
		`{"customerId":"b4e4e3c2-9d6a-4c8e-9a51-1fbd32c229e1","products":[{"productId":"p1","quantity":1}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
}
