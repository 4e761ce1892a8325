package httpsvc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ims/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ims/internal/storage/memory"
)

func TestProductHandler_Create(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/products", map[string]any{
		"name":        "Widget",
		"description": "A widget",
		"price":       19.99,
		"stock":       5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	envelope := decodeEnvelope(t, w)
	require.Equal(t, statusSuccess, envelope.Status)
	require.Equal(t, "Product created successfully", envelope.Message)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Widget", data["name"])
	require.Equal(t, "A widget", data["description"])
	require.Equal(t, 19.99, data["price"])
	require.Equal(t, float64(5), data["stock"])
	require.NotEmpty(t, data["id"])
	require.NotEmpty(t, data["createdAt"])

	events := env.events.published()
	require.Len(t, events, 1)
	require.Equal(t, kafka.TopicProductEvents, events[0].topic)
}

func TestProductHandler_CreateDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	env.createProduct(t, "Widget", 5)

	w := env.do(t, http.MethodPost, "/api/products", map[string]any{
		"name":        "Widget",
		"description": "another",
		"price":       1.0,
		"stock":       1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	envelope := decodeEnvelope(t, w)
	require.Equal(t, statusFailed, envelope.Status)
	require.Equal(t, "Product already exists", envelope.Message)
	require.Nil(t, envelope.Data)
}

func TestProductHandler_List(t *testing.T) {
	env := newTestEnv(t)
	env.createProduct(t, "Alpha", 1)
	env.createProduct(t, "Beta", 2)

	w := env.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, w.Code)

	envelope := decodeEnvelope(t, w)
	require.Equal(t, "Products fetched successfully", envelope.Message)

	list, ok := envelope.Data.([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
}

func TestProductHandler_GetByID(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProduct(t, "Widget", 5)

	w := env.do(t, http.MethodGet, "/api/products/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	envelope := decodeEnvelope(t, w)
	require.Equal(t, "Product fetched successfully", envelope.Message)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, id, data["id"])
}

func TestProductHandler_GetByIDNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/products/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	envelope := decodeEnvelope(t, w)
	require.Equal(t, "Product not found", envelope.Message)
}

func TestProductHandler_Update(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProduct(t, "Widget", 5)

	w := env.do(t, http.MethodPut, "/api/products/"+id, map[string]any{
		"price": 29.99,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	envelope := decodeEnvelope(t, w)
	require.Equal(t, "Product updated successfully", envelope.Message)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, 29.99, data["price"])
	require.Equal(t, "Widget", data["name"])
}

func TestProductHandler_UpdateNoChanges(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProduct(t, "Widget", 5)

	w := env.do(t, http.MethodPut, "/api/products/"+id, map[string]any{
		"name": "Widget",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	envelope := decodeEnvelope(t, w)
	require.Equal(t, "No changes to update", envelope.Message)
}

func TestProductHandler_UpdateNameTaken(t *testing.T) {
	env := newTestEnv(t)
	env.createProduct(t, "Alpha", 1)
	id := env.createProduct(t, "Beta", 2)

	w := env.do(t, http.MethodPut, "/api/products/"+id, map[string]any{
		"name": "Alpha",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	envelope := decodeEnvelope(t, w)
	require.Equal(t, "Product name already exists", envelope.Message)
}

func TestProductHandler_UpdateNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/products/"+uuid.NewString(), map[string]any{
		"price": 1.0,
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	envelope := decodeEnvelope(t, w)
	require.Equal(t, "Product not found", envelope.Message)
}

func TestProductHandler_Delete(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProduct(t, "Widget", 5)

	w := env.do(t, http.MethodDelete, "/api/products/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	envelope := decodeEnvelope(t, w)
	require.Equal(t, "Product deleted successfully", envelope.Message)
	require.Nil(t, envelope.Data)

	w = env.do(t, http.MethodGet, "/api/products/"+id, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductHandler_DeleteNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodDelete, "/api/products/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	envelope := decodeEnvelope(t, w)
	require.Equal(t, "Product not found", envelope.Message)
}

func TestProductHandler_Restock(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProduct(t, "Widget", 5)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/products/%s/restock", id), map[string]any{
		"stock": 10,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	envelope := decodeEnvelope(t, w)
	require.Equal(t, "Product restocked successfully", envelope.Message)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(15), data["stock"])
}

func TestProductHandler_RestockNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/products/%s/restock", uuid.NewString()), map[string]any{
		"stock": 10,
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	envelope := decodeEnvelope(t, w)
	require.Equal(t, "Product not found", envelope.Message)
}

func TestProductHandler_Sell(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProduct(t, "Widget", 5)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/products/%s/sell", id), map[string]any{
		"quantity": 5,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	envelope := decodeEnvelope(t, w)
	require.Equal(t, "Product sold successfully", envelope.Message)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(0), data["stock"])
}

func TestProductHandler_SellInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProduct(t, "Widget", 5)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/products/%s/sell", id), map[string]any{
		"quantity": 6,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	envelope := decodeEnvelope(t, w)
	require.Equal(t, "Insufficient stock", envelope.Message)

	// Остаток не изменился.
	w = env.do(t, http.MethodGet, "/api/products/"+id, nil)
	data := decodeEnvelope(t, w).Data.(map[string]any)
	require.Equal(t, float64(5), data["stock"])
}

// invokeStockHandler вызывает handler напрямую, минуя схему валидации:
// отрицательные значения она отсекает раньше, а handler всё равно обязан
// отвечать 400, а не 500.
func invokeStockHandler(t *testing.T, handle gin.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: uuid.NewString()}}
	c.Request = httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	handle(c)
	return w
}

func TestProductHandler_RestockNegativeAmount(t *testing.T) {
	store := memory.NewStore()
	handler := NewProductHandler(memory.NewProductRepository(store), nil, nil, nil)

	w := invokeStockHandler(t, handler.Restock, "/api/products/x/restock", `{"stock": -1}`)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	var envelope Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "Stock amount must be non-negative", envelope.Message)
}

func TestProductHandler_SellNegativeQuantity(t *testing.T) {
	store := memory.NewStore()
	handler := NewProductHandler(memory.NewProductRepository(store), nil, nil, nil)

	w := invokeStockHandler(t, handler.Sell, "/api/products/x/sell", `{"quantity": -3}`)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	var envelope Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "Stock amount must be non-negative", envelope.Message)
}

func TestProductHandler_EventPublishFailureDoesNotAffectResponse(t *testing.T) {
	env := newTestEnv(t)
	env.events.err = fmt.Errorf("broker is down")

	w := env.do(t, http.MethodPost, "/api/products", map[string]any{
		"name":        "Widget",
		"description": "A widget",
		"price":       1.0,
		"stock":       1,
	})
	require.Equal(t, http.StatusCreated, w.Code)
}
