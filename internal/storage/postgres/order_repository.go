package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Create выполняет оформление заказа одной транзакцией: блокирует строки
// всех упомянутых товаров, проверяет существование и остатки, сохраняет
// заказ с позициями и списывает остатки. Любая ошибка откатывает всё.
// Транзакция не привязана к контексту запроса: обрыв соединения клиента
// не оставляет половинчатого состояния.
func (r *orderRepository) Create(order domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	remaining, err := lockProducts(ctx, tx, order.Items)
	if err != nil {
		return domain.Order{}, err
	}

	// Проверяем позиции в порядке запроса; дубли товара в заказе
	// суммарно не могут превысить остаток.
	for _, item := range order.Items {
		stock, ok := remaining[item.ProductID]
		if !ok {
			err = &domain.ProductNotFoundError{ProductID: item.ProductID}
			return domain.Order{}, err
		}
		if stock < item.Quantity {
			err = &domain.InsufficientStockError{ProductID: item.ProductID}
			return domain.Order{}, err
		}
		remaining[item.ProductID] = stock - item.Quantity
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4)
	`,
		order.ID, order.CustomerID, order.CreatedAt, order.UpdatedAt,
	); err != nil {
		err = fmt.Errorf("insert order: %w", err)
		return domain.Order{}, err
	}

	for _, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`,
			item.ID, order.ID, item.ProductID, item.Quantity, item.CreatedAt, item.UpdatedAt,
		); err != nil {
			err = fmt.Errorf("insert order item: %w", err)
			return domain.Order{}, err
		}
	}

	now := time.Now().UTC()
	for _, item := range order.Items {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = $3
			WHERE id = $1 AND stock >= $2
		`, item.ProductID, item.Quantity, now)
		if err != nil {
			err = fmt.Errorf("decrement stock: %w", err)
			return domain.Order{}, err
		}
		var affected int64
		affected, err = res.RowsAffected()
		if err != nil {
			err = fmt.Errorf("decrement stock rows affected: %w", err)
			return domain.Order{}, err
		}
		// Строки заблокированы и остатки сверены, guard не должен промахнуться.
		if affected == 0 {
			err = &domain.InsufficientStockError{ProductID: item.ProductID}
			return domain.Order{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit create order: %w", err)
		return domain.Order{}, err
	}

	return order, nil
}

// lockProducts берёт row-lock на каждый упомянутый товар и возвращает
// текущие остатки. Идентификаторы блокируются в отсортированном порядке,
// чтобы конкурентные заказы не взаимоблокировались.
func lockProducts(ctx context.Context, tx *sql.Tx, items []domain.OrderItem) (map[string]int64, error) {
	unique := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := unique[item.ProductID]; ok {
			continue
		}
		unique[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	sort.Strings(ids)

	stocks := make(map[string]int64, len(ids))
	for _, id := range ids {
		var stock int64
		err := tx.QueryRowContext(ctx, `
			SELECT stock FROM products WHERE id = $1 FOR UPDATE
		`, id).Scan(&stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Отсутствующий товар не блокирует транзакцию сам по себе:
				// ошибку с точным productId поднимет проверка позиций.
				continue
			}
			return nil, fmt.Errorf("lock product row: %w", err)
		}
		stocks[id] = stock
	}

	return stocks, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
