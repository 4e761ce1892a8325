package memory

import (
	"sort"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

// productRepositoryInMemory — in-memory реализация ProductRepository.
type productRepositoryInMemory struct {
	store *Store
}

// NewProductRepository возвращает in-memory репозиторий товаров.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepositoryInMemory{store: store}
}

// Create сохраняет новый товар, если имя ещё не занято.
func (r *productRepositoryInMemory) Create(product domain.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.products {
		if existing.Name == product.Name {
			return domain.ErrProductExists
		}
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.store.products[product.ID] = product
	return nil
}

// GetAll возвращает все товары, отсортированные по времени создания.
func (r *productRepositoryInMemory) GetAll() ([]domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.store.products))
	for _, product := range r.store.products {
		result = append(result, product)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Get возвращает товар или ErrProductNotFound, если его нет.
func (r *productRepositoryInMemory) Get(id string) (domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	product, ok := r.store.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// Update применяет частичное обновление с diff только по присутствующим полям.
func (r *productRepositoryInMemory) Update(id string, changes domain.ProductChanges) (domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}

	if changes.Name != nil && *changes.Name != current.Name {
		for _, existing := range r.store.products {
			if existing.ID != id && existing.Name == *changes.Name {
				return domain.Product{}, domain.ErrProductNameTaken
			}
		}
	}

	if !changes.DiffersFrom(current) {
		return domain.Product{}, domain.ErrNoChanges
	}

	updated := changes.ApplyTo(current)
	updated.UpdatedAt = time.Now().UTC()
	r.store.products[id] = updated
	return updated, nil
}

// Delete безвозвратно удаляет товар.
func (r *productRepositoryInMemory) Delete(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.store.products, id)
	return nil
}

// IncrementStock добавляет amount к остатку без верхней границы.
func (r *productRepositoryInMemory) IncrementStock(id string, amount int64) (domain.Product, error) {
	if amount < 0 {
		return domain.Product{}, domain.ErrStockAmountInvalid
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	product, ok := r.store.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}

	product.Stock += amount
	product.UpdatedAt = time.Now().UTC()
	r.store.products[id] = product
	return product, nil
}

// DecrementStock списывает quantity единиц, не позволяя остатку уйти в минус.
func (r *productRepositoryInMemory) DecrementStock(id string, quantity int64) (domain.Product, error) {
	if quantity < 0 {
		return domain.Product{}, domain.ErrStockAmountInvalid
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	product, ok := r.store.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if product.Stock < quantity {
		return domain.Product{}, &domain.InsufficientStockError{ProductID: id}
	}

	product.Stock -= quantity
	product.UpdatedAt = time.Now().UTC()
	r.store.products[id] = product
	return product, nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
