package httpsvc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router   *gin.Engine
	products domain.ProductRepository
	outbox   domain.OutboxRepository
	events   *stubEventPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	orders := memory.NewOrderRepository(store)
	outbox := memory.NewOutboxRepository()
	events := &stubEventPublisher{}

	router := NewRouter(RouterConfig{
		Products: products,
		Orders:   orders,
		Outbox:   outbox,
		Events:   events,
	})

	return &testEnv{
		router:   router,
		products: products,
		outbox:   outbox,
		events:   events,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()

	var envelope Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

// createProduct создаёт товар через API и возвращает его id.
func (e *testEnv) createProduct(t *testing.T, name string, stock int64) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/products", map[string]any{
		"name":        name,
		"description": "test product",
		"price":       9.99,
		"stock":       stock,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	envelope := decodeEnvelope(t, w)
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	id, ok := data["id"].(string)
	require.True(t, ok)
	return id
}

type publishedEvent struct {
	topic string
	key   string
	event any
}

type stubEventPublisher struct {
	mu     sync.Mutex
	err    error
	events []publishedEvent
}

func (s *stubEventPublisher) PublishEvent(topic string, key string, event interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, publishedEvent{topic: topic, key: key, event: event})
	return nil
}

func (s *stubEventPublisher) published() []publishedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]publishedEvent(nil), s.events...)
}
