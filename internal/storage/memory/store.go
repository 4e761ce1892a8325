package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

// Store держит всё in-memory состояние под одним мьютексом, чтобы
// транзакция заказа могла атомарно читать и менять товары и заказы.
type Store struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	orders   map[string]domain.Order
}

// NewStore создаёт пустое in-memory хранилище для локальной разработки и тестов.
func NewStore() *Store {
	return &Store{
		products: make(map[string]domain.Product),
		orders:   make(map[string]domain.Order),
	}
}
