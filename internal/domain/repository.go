package domain

// ProductRepository описывает требования к хранилищу товаров.
type ProductRepository interface {
	// Create сохраняет новый товар. Возвращает ErrProductExists,
	// если имя уже занято живым товаром.
	Create(product Product) error
	// GetAll возвращает все товары со стабильным порядком внутри одного чтения.
	GetAll() ([]Product, error)
	// Get возвращает товар по идентификатору или ErrProductNotFound, если его нет.
	Get(id string) (Product, error)
	// Update применяет частичное обновление. Возвращает ErrProductNotFound,
	// ErrProductNameTaken при попытке занять чужое имя и ErrNoChanges,
	// если присутствующие поля совпадают с текущими значениями.
	Update(id string, changes ProductChanges) (Product, error)
	// Delete безвозвратно удаляет товар или возвращает ErrProductNotFound.
	Delete(id string) error
	// IncrementStock добавляет amount к остатку (restock) и возвращает обновлённый товар.
	IncrementStock(id string, amount int64) (Product, error)
	// DecrementStock атомарно списывает quantity единиц (sell).
	// Возвращает *InsufficientStockError, если остатка не хватает.
	DecrementStock(id string, quantity int64) (Product, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create выполняет транзакцию оформления заказа как одну атомарную
	// единицу работы: проверяет существование и остаток каждого товара,
	// сохраняет заказ с позициями и списывает остатки. При любой ошибке
	// ни заказ, ни остатки не изменяются. Возвращает *ProductNotFoundError
	// или *InsufficientStockError с указанием проблемного товара.
	Create(order Order) (Order, error)
}
