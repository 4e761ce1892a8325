package domain

import "time"

const (
	// MaxNameLength ограничивает длину имени товара.
	MaxNameLength = 50
	// MaxDescriptionLength ограничивает длину описания товара.
	MaxDescriptionLength = 50
)

// Product описывает товар на складе.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Stock       int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductChanges описывает частичное обновление товара.
// Nil-поле означает "ключ отсутствовал в запросе" и не участвует в diff.
type ProductChanges struct {
	Name        *string
	Description *string
	Price       *float64
	Stock       *int64
}

// IsEmpty сообщает, что в запросе не было ни одного поля.
func (c ProductChanges) IsEmpty() bool {
	return c.Name == nil && c.Description == nil && c.Price == nil && c.Stock == nil
}

// DiffersFrom сравнивает изменения с текущим состоянием товара.
// Сравниваются только присутствующие поля; timestamp-поля не участвуют.
func (c ProductChanges) DiffersFrom(p Product) bool {
	if c.Name != nil && *c.Name != p.Name {
		return true
	}
	if c.Description != nil && *c.Description != p.Description {
		return true
	}
	if c.Price != nil && *c.Price != p.Price {
		return true
	}
	if c.Stock != nil && *c.Stock != p.Stock {
		return true
	}
	return false
}

// ApplyTo возвращает копию товара с применёнными изменениями.
func (c ProductChanges) ApplyTo(p Product) Product {
	if c.Name != nil {
		p.Name = *c.Name
	}
	if c.Description != nil {
		p.Description = *c.Description
	}
	if c.Price != nil {
		p.Price = *c.Price
	}
	if c.Stock != nil {
		p.Stock = *c.Stock
	}
	return p
}

// ValidateInvariants проверяет базовые инварианты товара и возвращает список замечаний.
func (p *Product) ValidateInvariants() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if len(p.Name) > MaxNameLength {
		errs = append(errs, ErrProductNameTooLong)
	}
	if p.Description == "" {
		errs = append(errs, ErrProductDescriptionRequired)
	}
	if len(p.Description) > MaxDescriptionLength {
		errs = append(errs, ErrProductDescriptionTooLong)
	}
	if p.Price < 0 {
		errs = append(errs, ErrProductPriceNegative)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrProductStockNegative)
	}

	return errs
}
