package memory

import (
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	store *Store
}

// NewOrderRepository возвращает in-memory репозиторий заказов,
// разделяющий состояние с репозиторием товаров.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepositoryInMemory{store: store}
}

// Create выполняет транзакцию заказа: сначала проверяет все позиции,
// и только потом применяет списания. Под одним мьютексом обе фазы
// неразделимы, поэтому частичное применение невозможно.
func (r *orderRepositoryInMemory) Create(order domain.Order) (domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	// remaining учитывает повторяющиеся productId в рамках одного заказа.
	remaining := make(map[string]int64, len(order.Items))
	for _, item := range order.Items {
		product, ok := r.store.products[item.ProductID]
		if !ok {
			return domain.Order{}, &domain.ProductNotFoundError{ProductID: item.ProductID}
		}
		if _, seen := remaining[item.ProductID]; !seen {
			remaining[item.ProductID] = product.Stock
		}
		if remaining[item.ProductID] < item.Quantity {
			return domain.Order{}, &domain.InsufficientStockError{ProductID: item.ProductID}
		}
		remaining[item.ProductID] -= item.Quantity
	}

	now := time.Now().UTC()
	for _, item := range order.Items {
		product := r.store.products[item.ProductID]
		product.Stock -= item.Quantity
		product.UpdatedAt = now
		r.store.products[item.ProductID] = product
	}

	r.store.orders[order.ID] = order
	return order, nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
