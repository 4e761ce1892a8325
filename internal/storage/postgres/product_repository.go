package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

const productColumns = "id, name, description, price, stock, created_at, updated_at"

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		product.ID, product.Name, product.Description, product.Price,
		product.Stock, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		// Уникальность имени обеспечивает индекс, а не check-then-act.
		if isUniqueViolation(err) {
			return domain.ErrProductExists
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (r *productRepository) GetAll() ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

func (r *productRepository) Get(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, err
	}
	return product, nil
}

func (r *productRepository) Update(id string, changes domain.ProductChanges) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Product{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Блокируем строку, чтобы diff и запись были одной единицей работы.
	row := tx.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, id)

	current, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrProductNotFound
		}
		return domain.Product{}, err
	}

	if changes.Name != nil && *changes.Name != current.Name {
		var takenBy string
		lookupErr := tx.QueryRowContext(ctx, `
			SELECT id FROM products WHERE name = $1 AND id <> $2
		`, *changes.Name, id).Scan(&takenBy)
		switch {
		case lookupErr == nil:
			err = domain.ErrProductNameTaken
			return domain.Product{}, err
		case !errors.Is(lookupErr, sql.ErrNoRows):
			err = fmt.Errorf("check product name: %w", lookupErr)
			return domain.Product{}, err
		}
	}

	// Diff только по присутствующим полям; timestamp-поля не сравниваются.
	if !changes.DiffersFrom(current) {
		err = domain.ErrNoChanges
		return domain.Product{}, err
	}

	updated := changes.ApplyTo(current)
	updated.UpdatedAt = time.Now().UTC()

	if _, err = tx.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, stock = $5, updated_at = $6
		WHERE id = $1
	`,
		id, updated.Name, updated.Description, updated.Price, updated.Stock, updated.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrProductNameTaken
			return domain.Product{}, err
		}
		err = fmt.Errorf("update product: %w", err)
		return domain.Product{}, err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit update product: %w", err)
		return domain.Product{}, err
	}

	return updated, nil
}

func (r *productRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) IncrementStock(id string, amount int64) (domain.Product, error) {
	if amount < 0 {
		return domain.Product{}, domain.ErrStockAmountInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = $3
		WHERE id = $1
		RETURNING `+productColumns+`
	`, id, amount, time.Now().UTC())

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, err
	}
	return product, nil
}

func (r *productRepository) DecrementStock(id string, quantity int64) (domain.Product, error) {
	if quantity < 0 {
		return domain.Product{}, domain.ErrStockAmountInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	// Атомарный compare-and-decrement: guard в WHERE исключает гонку
	// check-then-act и уход остатка в минус.
	row := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2
		RETURNING `+productColumns+`
	`, id, quantity, time.Now().UTC())

	product, err := scanProduct(row)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, err
	}

	// Guard не сработал: различаем отсутствие товара и нехватку остатка.
	var exists bool
	if lookupErr := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)
	`, id).Scan(&exists); lookupErr != nil {
		return domain.Product{}, fmt.Errorf("check product existence: %w", lookupErr)
	}
	if !exists {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return domain.Product{}, &domain.InsufficientStockError{ProductID: id}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var product domain.Product
	if err := row.Scan(
		&product.ID, &product.Name, &product.Description, &product.Price,
		&product.Stock, &product.CreatedAt, &product.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, err
		}
		return domain.Product{}, fmt.Errorf("scan product row: %w", err)
	}
	return product, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.ProductRepository = (*productRepository)(nil)
