package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего имени товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка превышения допустимой длины имени товара.
	ErrProductNameTooLong = errors.New("product name is too long")
	// Ошибка отсутствующего описания товара.
	ErrProductDescriptionRequired = errors.New("product description is required")
	// Ошибка превышения допустимой длины описания товара.
	ErrProductDescriptionTooLong = errors.New("product description is too long")
	// Ошибка отрицательной цены товара.
	ErrProductPriceNegative = errors.New("product price must be non-negative")
	// Ошибка отрицательного остатка товара.
	ErrProductStockNegative = errors.New("product stock must be non-negative")
	// Ошибка отсутствующего идентификатора клиента в заказе.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отсутствующего идентификатора товара в позиции заказа.
	ErrItemProductRequired = errors.New("order item product_id is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("order item quantity must be greater than zero")

	// ErrProductNotFound возвращается, если товар не найден в репозитории.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductExists сигнализирует о конфликте имени при создании товара.
	ErrProductExists = errors.New("product already exists")
	// ErrProductNameTaken сигнализирует, что имя уже занято другим товаром.
	ErrProductNameTaken = errors.New("product name already exists")
	// ErrNoChanges возвращается, когда частичное обновление не меняет ни одного поля.
	ErrNoChanges = errors.New("no changes to update")
	// ErrInsufficientStock — бизнес-ошибка: запрошено больше, чем есть на складе.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStockAmountInvalid возвращается при некорректном значении изменения остатка.
	ErrStockAmountInvalid = errors.New("stock amount must be non-negative")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// ProductNotFoundError уточняет ErrProductNotFound идентификатором товара,
// на котором споткнулась проверка позиций заказа.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with ID %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error {
	return ErrProductNotFound
}

// InsufficientStockError уточняет ErrInsufficientStock идентификатором товара.
type InsufficientStockError struct {
	ProductID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product ID %s", e.ProductID)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// IsNotFound проверяет, является ли ошибка отсутствием товара.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}

// IsConflict проверяет, относится ли ошибка к классу бизнес-конфликтов (HTTP 400).
func IsConflict(err error) bool {
	return errors.Is(err, ErrProductExists) ||
		errors.Is(err, ErrProductNameTaken) ||
		errors.Is(err, ErrNoChanges) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrStockAmountInvalid)
}
